package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/studyroom/internal/model"
)

const resourceColumns = `id, type, title, subject, owner_id, class_id, published, content, created_at`

func scanResource(row interface{ Scan(...any) error }) (*model.Resource, error) {
	var r model.Resource
	err := row.Scan(&r.ID, &r.Type, &r.Title, &r.Subject, &r.OwnerID, &r.ClassID, &r.Published, &r.Content, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateResource stores a new quiz or flashcard deck and returns its ID.
func (s *Store) CreateResource(r model.Resource) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO resources (type, title, subject, owner_id, class_id, published, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Type, r.Title, r.Subject, r.OwnerID, r.ClassID, r.Published, r.Content, r.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert resource: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created resource", "id", id, "type", r.Type, "title", r.Title, "owner", r.OwnerID)
	return id, nil
}

// GetResource returns a resource by ID, or nil if there is none.
func (s *Store) GetResource(id int64) (*model.Resource, error) {
	r, err := scanResource(s.db.QueryRow(`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ResourceFilter narrows ListResources. Zero values match everything.
type ResourceFilter struct {
	Type          model.ResourceType
	OwnerID       int64
	PublishedOnly bool
	// ClassID, when set, keeps resources for that class plus unassigned ones.
	ClassID *int64
}

// ListResources returns resources matching f, newest first.
func (s *Store) ListResources(f ResourceFilter) ([]model.Resource, error) {
	q := `SELECT ` + resourceColumns + ` FROM resources WHERE 1=1`
	var args []any
	if f.Type != "" {
		q += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.OwnerID != 0 {
		q += ` AND owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.PublishedOnly {
		q += ` AND published = 1`
	}
	if f.ClassID != nil {
		q += ` AND (class_id IS NULL OR class_id = ?)`
		args = append(args, *f.ClassID)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// UpdateResource replaces the editable fields of a resource as a whole.
func (s *Store) UpdateResource(r model.Resource) error {
	res, err := s.db.Exec(
		`UPDATE resources SET title = ?, subject = ?, class_id = ?, content = ? WHERE id = ?`,
		r.Title, r.Subject, r.ClassID, r.Content, r.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "resource", r.ID)
}

// SetResourcePublished publishes or unpublishes a resource.
func (s *Store) SetResourcePublished(id int64, published bool) error {
	res, err := s.db.Exec(`UPDATE resources SET published = ? WHERE id = ?`, published, id)
	if err != nil {
		return err
	}
	return requireRow(res, "resource", id)
}

func requireRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", model.ErrNotFound, what, id)
	}
	return nil
}
