package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
)

type proposeRequest struct {
	InitiatorID int64  `json:"initiator_id" binding:"required"`
	OpponentID  int64  `json:"opponent_id" binding:"required"`
	Kind        string `json:"kind" binding:"required"`
	Stake       int64  `json:"stake" binding:"required,gt=0"`
}

type actorRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

type moveRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Move   string `json:"move" binding:"required"`
}

type sweepRequest struct {
	Limit int `json:"limit"`
}

type placeBetRequest struct {
	RoundID int64 `json:"round_id" binding:"required"`
	UserID  int64 `json:"user_id" binding:"required"`
	Stake   int64 `json:"stake" binding:"required,gt=0"`
}

type cashOutRequest struct {
	RoundID int64 `json:"round_id" binding:"required"`
	UserID  int64 `json:"user_id" binding:"required"`
}

type sessionResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	InitiatorID int64      `json:"initiator_id"`
	OpponentID  int64      `json:"opponent_id"`
	Stake       int64      `json:"stake"`
	WinnerID    *int64     `json:"winner_id,omitempty"`
	Deadline    time.Time  `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type participantResponse struct {
	UserID     int64   `json:"user_id"`
	Move       *string `json:"move,omitempty"`
	Ready      bool    `json:"ready"`
	Settlement *int64  `json:"settlement,omitempty"`
}

type sessionStateResponse struct {
	Session      sessionResponse       `json:"session"`
	Participants []participantResponse `json:"participants"`
	CountdownMs  int64                 `json:"countdown_ms"`
}

type roundStateResponse struct {
	RoundID    int64        `json:"round_id"`
	Status     string       `json:"status"`
	Multiplier float64      `json:"multiplier"`
	CrashPoint *float64     `json:"crash_point,omitempty"`
	Bet        *betResponse `json:"bet,omitempty"`
}

type betResponse struct {
	RoundID           int64    `json:"round_id"`
	UserID            int64    `json:"user_id"`
	Stake             int64    `json:"stake"`
	CashOutMultiplier *float64 `json:"cash_out_multiplier,omitempty"`
	Profit            *int64   `json:"profit,omitempty"`
}

type historyEntryResponse struct {
	ID              int64     `json:"id"`
	BalanceBefore   int64     `json:"balance_before"`
	BalanceAfter    int64     `json:"balance_after"`
	ChangeAmount    int64     `json:"change_amount"`
	TransactionType string    `json:"transaction_type"`
	RelatedID       *string   `json:"related_id,omitempty"`
	RelatedType     *string   `json:"related_type,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toHistoryEntryResponse(h *entities.BalanceHistory) historyEntryResponse {
	resp := historyEntryResponse{
		ID:              h.ID,
		BalanceBefore:   h.BalanceBefore,
		BalanceAfter:    h.BalanceAfter,
		ChangeAmount:    h.ChangeAmount,
		TransactionType: string(h.TransactionType),
		RelatedID:       h.RelatedID,
		CreatedAt:       h.CreatedAt,
	}
	if h.RelatedType != nil {
		rt := string(*h.RelatedType)
		resp.RelatedType = &rt
	}
	return resp
}

func toSessionResponse(s *entities.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID.String(),
		Kind:        string(s.Kind),
		Status:      string(s.Status),
		InitiatorID: s.InitiatorID,
		OpponentID:  s.OpponentID,
		Stake:       s.Stake,
		WinnerID:    s.WinnerID,
		Deadline:    s.Deadline,
		CreatedAt:   s.CreatedAt,
		AcceptedAt:  s.AcceptedAt,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

func toSessionStateResponse(state *entities.SessionState) sessionStateResponse {
	resp := sessionStateResponse{
		Session:     toSessionResponse(state.Session),
		CountdownMs: state.CountdownMs,
	}
	for _, p := range state.Participants {
		resp.Participants = append(resp.Participants, participantResponse{
			UserID:     p.UserID,
			Move:       p.Move,
			Ready:      p.Ready,
			Settlement: p.Settlement,
		})
	}
	return resp
}

func toBetResponse(b *entities.CrashBet) *betResponse {
	if b == nil {
		return nil
	}
	return &betResponse{
		RoundID:           b.RoundID,
		UserID:            b.UserID,
		Stake:             b.Stake,
		CashOutMultiplier: b.CashOutMultiplier,
		Profit:            b.Profit,
	}
}

func toRoundStateResponse(state *entities.RoundState) roundStateResponse {
	return roundStateResponse{
		RoundID:    state.Round.ID,
		Status:     string(state.Round.Status),
		Multiplier: state.Multiplier,
		CrashPoint: state.CrashPoint,
		Bet:        toBetResponse(state.Bet),
	}
}

func sessionIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, gameerr.NewValidation("invalid session id %q", c.Param("id"))
	}
	return id, nil
}

func (s *Server) proposeSession(c *gin.Context) {
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}

	session, err := s.engine.Propose(c.Request.Context(), req.InitiatorID, req.OpponentID, entities.GameKind(req.Kind), req.Stake)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(session))
}

func (s *Server) getSession(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		respondError(c, gameerr.NewValidation("user_id query parameter is required"))
		return
	}

	state, err := s.engine.GetState(c.Request.Context(), id, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionStateResponse(state))
}

func (s *Server) listOpenSessions(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		respondError(c, gameerr.NewValidation("user_id query parameter is required"))
		return
	}

	sessions, err := s.engine.ListOpenSessions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, toSessionResponse(session))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

func (s *Server) balanceHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, gameerr.NewValidation("invalid user id %q", c.Param("id")))
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(c, gameerr.NewValidation("invalid limit %q", raw))
			return
		}
	}

	entries, err := s.engine.BalanceHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, toHistoryEntryResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": resp})
}

func (s *Server) sessionAudit(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	net, err := s.engine.SessionAudit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"net_movement": net})
}

func (s *Server) acceptSession(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}

	state, err := s.engine.Accept(c.Request.Context(), id, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionStateResponse(state))
}

func (s *Server) setReady(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}

	state, err := s.engine.SetReady(c.Request.Context(), id, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionStateResponse(state))
}

func (s *Server) submitMove(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}

	state, err := s.engine.SubmitMove(c.Request.Context(), id, req.UserID, req.Move)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionStateResponse(state))
}

func (s *Server) cancelSession(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}

	session, err := s.engine.Cancel(c.Request.Context(), id, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(session))
}

func (s *Server) sweepExpired(c *gin.Context) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}

	count, err := s.engine.SweepExpired(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": count})
}

func (s *Server) currentRound(c *gin.Context) {
	viewerID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		respondError(c, gameerr.NewValidation("user_id query parameter is required"))
		return
	}

	state, err := s.engine.CurrentRound(c.Request.Context(), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoundStateResponse(state))
}

func (s *Server) placeBet(c *gin.Context) {
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}

	bet, err := s.engine.PlaceBet(c.Request.Context(), req.RoundID, req.UserID, req.Stake)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBetResponse(bet))
}

func (s *Server) cashOut(c *gin.Context) {
	var req cashOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gameerr.NewValidation("invalid request: %v", err))
		return
	}

	bet, err := s.engine.CashOut(c.Request.Context(), req.RoundID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBetResponse(bet))
}
