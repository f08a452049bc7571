package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pages (
	key TEXT PRIMARY KEY,
	html BLOB NOT NULL,
	generated_at INTEGER NOT NULL,
	revalidate_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS views (
	id TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);`

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePage(ctx context.Context, p *models.PageSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (key, html, generated_at, revalidate_ms) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET html = excluded.html, generated_at = excluded.generated_at, revalidate_ms = excluded.revalidate_ms`,
		p.Key, p.HTML, p.GeneratedAt.UnixNano(), p.Revalidate.Milliseconds())
	return err
}

func (s *SQLiteStore) GetPage(ctx context.Context, key string) (*models.PageSnapshot, error) {
	var (
		out          models.PageSnapshot
		generatedAt  int64
		revalidateMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, html, generated_at, revalidate_ms FROM pages WHERE key = ?`, key,
	).Scan(&out.Key, &out.HTML, &generatedAt, &revalidateMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out.GeneratedAt = time.Unix(0, generatedAt).UTC()
	out.Revalidate = time.Duration(revalidateMs) * time.Millisecond
	return &out, nil
}

func (s *SQLiteStore) DeletePage(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO views (id, count) VALUES (?, 1)
		 ON CONFLICT(id) DO UPDATE SET count = count + 1
		 RETURNING count`, id,
	).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Views(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM views WHERE id = ?`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
