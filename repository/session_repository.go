package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"gamehall/database"
	"gamehall/domain/entities"
)

const sessionColumns = `id, kind, status, initiator_id, opponent_id, stake,
	winner_id, deadline, created_at, accepted_at, started_at, completed_at`

const participantColumns = `session_id, user_id, stake_contributed, move, ready, settlement`

// SessionRepository implements duel session data access. All state-changing
// methods are conditional writes: the WHERE clause carries the expected prior
// state and the RETURNING clause tells the caller whether this call performed
// the transition. A nil row means another caller won the race.
type SessionRepository struct {
	q Queryable
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{q: db.Pool}
}

func newSessionRepository(q Queryable) *SessionRepository {
	return &SessionRepository{q: q}
}

// Create persists a new pending session with its participants
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session, participants []*entities.Participant) error {
	query := `
		INSERT INTO duel_sessions (id, kind, status, initiator_id, opponent_id, stake, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		session.ID,
		session.Kind,
		session.Status,
		session.InitiatorID,
		session.OpponentID,
		session.Stake,
		session.Deadline,
	).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	for _, p := range participants {
		_, err := r.q.Exec(ctx,
			`INSERT INTO duel_participants (session_id, user_id) VALUES ($1, $2)`,
			p.SessionID, p.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to create participant %d: %w", p.UserID, err)
		}
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM duel_sessions WHERE id = $1`, sessionColumns)

	session, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return session, nil
}

// GetParticipants returns both participant rows for a session
func (r *SessionRepository) GetParticipants(ctx context.Context, id uuid.UUID) ([]*entities.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM duel_participants WHERE session_id = $1 ORDER BY user_id`, participantColumns)

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants for %s: %w", id, err)
	}
	defer rows.Close()

	var participants []*entities.Participant
	for rows.Next() {
		var p entities.Participant
		if err := rows.Scan(&p.SessionID, &p.UserID, &p.StakeContributed, &p.Move, &p.Ready, &p.Settlement); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// GetOpenByUser returns non-terminal sessions involving the user, newest first
func (r *SessionRepository) GetOpenByUser(ctx context.Context, userID int64) ([]*entities.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM duel_sessions
		WHERE (initiator_id = $1 OR opponent_id = $1)
		  AND status IN ('pending', 'accepted', 'playing', 'revealing')
		ORDER BY created_at DESC
	`, sessionColumns)

	return r.querySessions(ctx, query, userID)
}

// GetExpiredPending returns pending sessions whose deadline has passed
func (r *SessionRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entities.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM duel_sessions
		WHERE status = 'pending' AND deadline < $1
		ORDER BY deadline
		LIMIT $2
	`, sessionColumns)

	return r.querySessions(ctx, query, now, limit)
}

// Accept transitions pending -> accepted
func (r *SessionRepository) Accept(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error) {
	query := fmt.Sprintf(`
		UPDATE duel_sessions
		SET status = 'accepted', accepted_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, sessionColumns)

	return r.guardedTransition(ctx, "accept", query, id, at)
}

// Start transitions accepted -> playing. The started_at IS NULL condition is
// the second guard of the ready race: exactly one start timestamp can land.
func (r *SessionRepository) Start(ctx context.Context, id uuid.UUID, startedAt time.Time) (*entities.Session, error) {
	query := fmt.Sprintf(`
		UPDATE duel_sessions
		SET status = 'playing', started_at = $2
		WHERE id = $1 AND status = 'accepted' AND started_at IS NULL
		RETURNING %s
	`, sessionColumns)

	return r.guardedTransition(ctx, "start", query, id, startedAt)
}

// MarkRevealing transitions playing -> revealing
func (r *SessionRepository) MarkRevealing(ctx context.Context, id uuid.UUID) (*entities.Session, error) {
	query := fmt.Sprintf(`
		UPDATE duel_sessions
		SET status = 'revealing'
		WHERE id = $1 AND status = 'playing'
		RETURNING %s
	`, sessionColumns)

	return r.guardedTransition(ctx, "mark revealing", query, id)
}

// Complete transitions from the given prior status to completed. The status
// condition keeps two racing settlements from both paying out.
func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID, from entities.SessionStatus, winnerID *int64, at time.Time) (*entities.Session, error) {
	query := fmt.Sprintf(`
		UPDATE duel_sessions
		SET status = 'completed', winner_id = $3, completed_at = $4
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, sessionColumns)

	return r.guardedTransition(ctx, "complete", query, id, from, winnerID, at)
}

// Cancel transitions pending -> cancelled
func (r *SessionRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error) {
	query := fmt.Sprintf(`
		UPDATE duel_sessions
		SET status = 'cancelled', completed_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, sessionColumns)

	return r.guardedTransition(ctx, "cancel", query, id, at)
}

// Expire transitions pending -> expired
func (r *SessionRepository) Expire(ctx context.Context, id uuid.UUID, at time.Time) (*entities.Session, error) {
	query := fmt.Sprintf(`
		UPDATE duel_sessions
		SET status = 'expired', completed_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, sessionColumns)

	return r.guardedTransition(ctx, "expire", query, id, at)
}

// SetReady sets the participant's ready flag. The RETURNING clause carries
// the freshly written row plus the other side's committed flag, so the caller
// decides on current data instead of a pre-read.
func (r *SessionRepository) SetReady(ctx context.Context, sessionID uuid.UUID, userID int64) (*entities.Participant, bool, error) {
	query := `
		UPDATE duel_participants sp
		SET ready = TRUE
		WHERE session_id = $1 AND user_id = $2
		RETURNING sp.session_id, sp.user_id, sp.stake_contributed, sp.move, sp.ready, sp.settlement,
			EXISTS(
				SELECT 1 FROM duel_participants o
				WHERE o.session_id = sp.session_id AND o.user_id <> sp.user_id AND o.ready
			)
	`

	var p entities.Participant
	var otherReady bool
	err := r.q.QueryRow(ctx, query, sessionID, userID).Scan(
		&p.SessionID, &p.UserID, &p.StakeContributed, &p.Move, &p.Ready, &p.Settlement, &otherReady,
	)

	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to set ready for %d in %s: %w", userID, sessionID, err)
	}

	return &p, otherReady, nil
}

// RecordMove writes the participant's move. move IS NULL makes the column
// write-once; nil means a move was already recorded. The RETURNING clause
// also carries whether the opponent's move has committed, so the caller
// decides the reveal-or-settle question on current data.
func (r *SessionRepository) RecordMove(ctx context.Context, sessionID uuid.UUID, userID int64, move string) (*entities.Participant, bool, error) {
	query := `
		UPDATE duel_participants sp
		SET move = $3
		WHERE session_id = $1 AND user_id = $2 AND move IS NULL
		RETURNING sp.session_id, sp.user_id, sp.stake_contributed, sp.move, sp.ready, sp.settlement,
			EXISTS(
				SELECT 1 FROM duel_participants o
				WHERE o.session_id = sp.session_id AND o.user_id <> sp.user_id AND o.move IS NOT NULL
			)
	`

	var p entities.Participant
	var otherMoved bool
	err := r.q.QueryRow(ctx, query, sessionID, userID, move).Scan(
		&p.SessionID, &p.UserID, &p.StakeContributed, &p.Move, &p.Ready, &p.Settlement, &otherMoved,
	)

	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to record move for %d in %s: %w", userID, sessionID, err)
	}

	return &p, otherMoved, nil
}

// SetStakeContributed records how much the participant has paid in
func (r *SessionRepository) SetStakeContributed(ctx context.Context, sessionID uuid.UUID, userID int64, amount int64) error {
	result, err := r.q.Exec(ctx,
		`UPDATE duel_participants SET stake_contributed = $3 WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to set stake for %d in %s: %w", userID, sessionID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %d not found in session %s", userID, sessionID)
	}
	return nil
}

// SetSettlement records the amount paid out to the participant
func (r *SessionRepository) SetSettlement(ctx context.Context, sessionID uuid.UUID, userID int64, amount int64) error {
	result, err := r.q.Exec(ctx,
		`UPDATE duel_participants SET settlement = $3 WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to set settlement for %d in %s: %w", userID, sessionID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %d not found in session %s", userID, sessionID)
	}
	return nil
}

func (r *SessionRepository) guardedTransition(ctx context.Context, op, query string, args ...any) (*entities.Session, error) {
	session, err := scanSession(r.q.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s session: %w", op, err)
	}
	return session, nil
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]*entities.Session, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entities.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*entities.Session, error) {
	var s entities.Session
	err := row.Scan(
		&s.ID,
		&s.Kind,
		&s.Status,
		&s.InitiatorID,
		&s.OpponentID,
		&s.Stake,
		&s.WinnerID,
		&s.Deadline,
		&s.CreatedAt,
		&s.AcceptedAt,
		&s.StartedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
