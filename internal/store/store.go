// Package store persists delivered notifications in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a notification id does not exist.
var ErrNotFound = errors.New("store: notification not found")

const defaultListLimit = 50

// Notification is one delivered message.
type Notification struct {
	ID           string          `json:"id"`
	Notification string          `json:"notification"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Read         bool            `json:"read"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Store wraps the notifications database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notifications (
			id           TEXT PRIMARY KEY,
			notification TEXT    NOT NULL,
			payload      TEXT,
			read         INTEGER NOT NULL DEFAULT 0,
			created_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add stores notification with payload marshalled as JSON. A nil payload is
// stored as NULL.
func (s *Store) Add(ctx context.Context, notification string, payload any) (Notification, error) {
	n := Notification{
		ID:           uuid.NewString(),
		Notification: notification,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}

	var raw sql.NullString
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Notification{}, fmt.Errorf("store: marshal payload: %w", err)
		}
		n.Payload = b
		raw = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, notification, payload, read, created_at) VALUES (?, ?, ?, 0, ?)`,
		n.ID, n.Notification, raw, n.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Notification{}, fmt.Errorf("store: insert notification: %w", err)
	}
	return n, nil
}

// Get returns one notification by id.
func (s *Store) Get(ctx context.Context, id string) (Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, notification, payload, read, created_at FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	if err != nil {
		return Notification{}, fmt.Errorf("store: get notification: %w", err)
	}
	return n, nil
}

// List returns up to limit notifications, newest first. limit <= 0 uses the
// default of 50.
func (s *Store) List(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, notification, payload, read, created_at FROM notifications
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns the number of notifications not yet marked read.
func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE read = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks a single notification read.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: mark read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: mark read: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification read and returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE read = 0`)
	if err != nil {
		return 0, fmt.Errorf("store: mark all read: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(sc scanner) (Notification, error) {
	var (
		n       Notification
		payload sql.NullString
		read    int
		created int64
	)
	if err := sc.Scan(&n.ID, &n.Notification, &payload, &read, &created); err != nil {
		return Notification{}, err
	}
	if payload.Valid {
		n.Payload = json.RawMessage(payload.String)
	}
	n.Read = read != 0
	n.CreatedAt = time.UnixMilli(created).UTC()
	return n, nil
}
