package store

import (
	"database/sql"
	"errors"
	"time"
)

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionFinished  SessionStatus = "finished"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is one played game.
type Session struct {
	ID        string        `json:"id"`
	Player    string        `json:"player"`
	Status    SessionStatus `json:"status"`
	Score     int           `json:"score"`
	Rounds    int           `json:"rounds"`
	Lives     int           `json:"lives"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, player, status, score, rounds, lives, started_at, ended_at`

// Create inserts a new active session.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	if sess.Status == "" {
		sess.Status = SessionActive
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, player, status, score, rounds, lives, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Player, string(sess.Status), sess.Score, sess.Rounds, sess.Lives, sess.StartedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Finish records the final result of a session.
func (r *SessionRepository) Finish(id string, status SessionStatus, score, rounds, lives int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET status = ?, score = ?, rounds = ?, lives = ?, ended_at = ?
		 WHERE id = ?`,
		string(status), score, rounds, lives, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// List retrieves the most recent sessions, newest first.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	return r.query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
}

// Leaderboard retrieves finished sessions ordered by score. Ties go to the
// session that survived more rounds, then to the earlier one.
func (r *SessionRepository) Leaderboard(limit int) ([]*Session, error) {
	return r.query(
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE status = ?
		 ORDER BY score DESC, rounds DESC, started_at ASC
		 LIMIT ?`,
		string(SessionFinished), limit,
	)
}

func (r *SessionRepository) query(q string, args ...any) ([]*Session, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var status string
	var ended sql.NullTime

	err := row.Scan(&sess.ID, &sess.Player, &status, &sess.Score, &sess.Rounds, &sess.Lives, &sess.StartedAt, &ended)
	if err != nil {
		return nil, err
	}

	sess.Status = SessionStatus(status)
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
