package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jpalmerr/danmaku/internal/pubsub"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a [Store] backed by a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	hub *pubsub.Hub[Message]
	now func() time.Time
}

// OpenSQLite opens (creating if necessary) the database at path and applies
// the schema. The parent directory is created if missing.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// modernc.org/sqlite registers the "sqlite" driver name
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection, so writes are serialized
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		hub: pubsub.New[Message](pubsub.DefaultBuffer),
		now: time.Now,
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts a message and notifies all subscribers.
func (s *SQLiteStore) Save(ctx context.Context, content string) (Message, error) {
	msg, err := newMessage(content, s.now())
	if err != nil {
		return Message{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, content, created_at_unixms) VALUES (?, ?, ?)`,
		msg.ID, msg.Content, msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}
	// stored precision is milliseconds
	msg.CreatedAt = time.UnixMilli(msg.CreatedAt.UnixMilli()).UTC()

	s.hub.Publish(msg)
	return msg, nil
}

// List returns every stored message, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, created_at_unixms FROM messages ORDER BY created_at_unixms, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			msg Message
			ms  int64
		)
		if err := rows.Scan(&msg.ID, &msg.Content, &ms); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return out, nil
}

// Subscribe creates a new subscription for newly saved messages.
func (s *SQLiteStore) Subscribe() <-chan Message {
	return s.hub.Subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (s *SQLiteStore) Unsubscribe(ch <-chan Message) {
	s.hub.Unsubscribe(ch)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
