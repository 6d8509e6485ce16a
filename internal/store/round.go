package store

import (
	"crypto/rand"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Round is the judged result of one wall.
type Round struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Round      int       `json:"round"`
	Template   string    `json:"template"`
	Similarity int       `json:"similarity"`
	Passed     bool      `json:"passed"`
	WallMs     int64     `json:"wall_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newRoundID(t time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RoundRepository provides operations for round results.
type RoundRepository struct {
	db *sql.DB
}

// Rounds returns the round repository for this store.
func (s *Store) Rounds() *RoundRepository {
	return &RoundRepository{db: s.db}
}

// Create inserts a round result. IDs are ULIDs, so they sort by creation time.
func (r *RoundRepository) Create(rd *Round) error {
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = time.Now()
	}
	if rd.ID == "" {
		id, err := newRoundID(rd.CreatedAt)
		if err != nil {
			return err
		}
		rd.ID = id
	}

	_, err := r.db.Exec(
		`INSERT INTO rounds (id, session_id, round, template, similarity, passed, wall_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.ID, rd.SessionID, rd.Round, rd.Template, rd.Similarity, rd.Passed, rd.WallMs, rd.CreatedAt,
	)
	return err
}

// ListBySession retrieves the rounds of a session in play order.
func (r *RoundRepository) ListBySession(sessionID string) ([]Round, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, round, template, similarity, passed, wall_ms, created_at
		 FROM rounds
		 WHERE session_id = ?
		 ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		var rd Round
		if err := rows.Scan(&rd.ID, &rd.SessionID, &rd.Round, &rd.Template, &rd.Similarity, &rd.Passed, &rd.WallMs, &rd.CreatedAt); err != nil {
			return nil, err
		}
		rounds = append(rounds, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rounds, nil
}
