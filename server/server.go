// Package server exposes the engine over a JSON polling API. Handlers hold
// no game state: every request is answered from the store, and clients are
// expected to poll GET endpoints to observe countdowns and multipliers.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"gamehall/domain/gameerr"
	"gamehall/engine"
)

// Server wires the HTTP routes to the game engine
type Server struct {
	engine *engine.Engine
	router *gin.Engine
}

// New creates a Server with all routes registered
func New(eng *engine.Engine) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{engine: eng, router: router}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/sessions", s.proposeSession)
		api.GET("/sessions", s.listOpenSessions)
		api.GET("/sessions/:id", s.getSession)
		api.GET("/sessions/:id/audit", s.sessionAudit)
		api.POST("/sessions/:id/accept", s.acceptSession)
		api.POST("/sessions/:id/ready", s.setReady)
		api.POST("/sessions/:id/move", s.submitMove)
		api.POST("/sessions/:id/cancel", s.cancelSession)
		api.POST("/sweep", s.sweepExpired)
		api.GET("/users/:id/history", s.balanceHistory)

		api.GET("/crash", s.currentRound)
		api.POST("/crash/bets", s.placeBet)
		api.POST("/crash/cashout", s.cashOut)
	}
}

// Run starts the HTTP server on the given address
func (s *Server) Run(addr string) error {
	log.WithField("addr", addr).Info("Starting HTTP server")
	return s.router.Run(addr)
}

// Handler returns the underlying http.Handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError maps the domain error taxonomy onto HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case gameerr.IsValidation(err):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "validation"})
	case gameerr.IsEligibility(err):
		c.JSON(http.StatusForbidden, errorResponse{Error: err.Error(), Code: "eligibility"})
	case gameerr.IsStateConflict(err):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "state_conflict"})
	case gameerr.IsExpired(err):
		c.JSON(http.StatusGone, errorResponse{Error: err.Error(), Code: "expired"})
	default:
		log.WithError(err).Error("Request failed with store error")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "store"})
	}
}
