package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/posewall/internal/pose"
)

// Template is a custom target pose saved by a player.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TemplateRepository provides CRUD operations for custom templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Create inserts a new template.
func (r *TemplateRepository) Create(t *Template) error {
	t.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO templates (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.CreatedAt,
	)
	return err
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	return r.get(`SELECT id, name, created_at FROM templates WHERE id = ?`, id)
}

// GetByName retrieves a template by its name.
func (r *TemplateRepository) GetByName(name string) (*Template, error) {
	return r.get(`SELECT id, name, created_at FROM templates WHERE name = ?`, name)
}

func (r *TemplateRepository) get(q string, arg string) (*Template, error) {
	t := &Template{}
	err := r.db.QueryRow(q, arg).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves all templates, oldest first.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(`SELECT id, name, created_at FROM templates ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// Delete removes a template and its landmarks.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// SetLandmarks replaces the landmarks of a template in a single transaction.
func (r *TemplateRepository) SetLandmarks(templateID string, landmarks []pose.Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM template_landmarks WHERE template_id = ?`, templateID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO template_landmarks (template_id, landmark_index, x, y, z, visibility)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range landmarks {
		if _, err := stmt.Exec(templateID, i, l.X, l.Y, l.Z, l.Visibility); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetLandmarks retrieves the landmarks of a template ordered by index.
// Gaps in the stored indices are returned as zero placeholders.
func (r *TemplateRepository) GetLandmarks(templateID string) ([]pose.Landmark, error) {
	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z, visibility
		 FROM template_landmarks
		 WHERE template_id = ?
		 ORDER BY landmark_index`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []pose.Landmark
	for rows.Next() {
		var idx int
		var l pose.Landmark
		if err := rows.Scan(&idx, &l.X, &l.Y, &l.Z, &l.Visibility); err != nil {
			return nil, err
		}
		for len(landmarks) < idx {
			landmarks = append(landmarks, pose.Landmark{})
		}
		landmarks = append(landmarks, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return landmarks, nil
}
