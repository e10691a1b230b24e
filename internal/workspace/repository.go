package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Repository interface {
	Create(ctx context.Context, ws *Workspace) error
	Get(ctx context.Context, id string) (*Workspace, error)
	Save(ctx context.Context, ws *Workspace) error
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

// Summary is a listing row; it avoids decoding whole documents.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SQLiteRepository stores each workspace as one JSON document row.
type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, ws *Workspace) error {
	doc, err := json.Marshal(ws.ToDocument())
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, ws.ID, ws.Name, string(doc), ws.CreatedAt.Format(time.RFC3339Nano), ws.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Workspace, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT document FROM workspaces WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	return FromDocument(doc)
}

func (r *SQLiteRepository) Save(ctx context.Context, ws *Workspace) error {
	doc, err := json.Marshal(ws.ToDocument())
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE workspaces SET name = ?, document = ?, updated_at = ? WHERE id = ?
	`, ws.Name, string(doc), ws.UpdatedAt.Format(time.RFC3339Nano), ws.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ws.ID)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM workspaces ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		var createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", id)
	return err
}
