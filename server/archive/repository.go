package archive

import (
	"context"
	"database/sql"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS archive (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	path       TEXT NOT NULL,
	source     TEXT NOT NULL,
	format_id  TEXT NOT NULL,
	label      TEXT NOT NULL,
	size       INTEGER NOT NULL,
	created_at INTEGER NOT NULL
)`

type Repository struct {
	db *sql.DB
}

// Open opens (and creates) the sqlite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	return db, nil
}

func NewRepository(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Archive(ctx context.Context, e *Entity) error {
	if e.Id == "" {
		e.Id = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO archive (id, title, path, source, format_id, label, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Id, e.Title, e.Path, e.Source, e.FormatId, e.Label, e.Size, e.CreatedAt.UnixMilli(),
	)
	return err
}

// List returns the most recent entries first.
func (r *Repository) List(ctx context.Context, limit int) ([]Entity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, path, source, format_id, label, size, created_at
		 FROM archive ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]Entity, 0)

	for rows.Next() {
		var (
			e       Entity
			created int64
		)
		if err := rows.Scan(&e.Id, &e.Title, &e.Path, &e.Source, &e.FormatId, &e.Label, &e.Size, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(created)
		e.SizeHuman = humanize.IBytes(uint64(e.Size))
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM archive WHERE id = ?`, id)
	return err
}
