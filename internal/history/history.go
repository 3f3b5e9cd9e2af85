// Package history provides SQLite-based persistence for command transcripts.
// If opening the DB or executing queries fails, the store falls back to
// in-memory storage.
package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/comigor/azoai-go/internal/logger"
)

// Entry is the transcript of one command run.
type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// NewSessionID returns a fresh id grouping the entries of one invocation.
func NewSessionID() string {
	return uuid.NewString()
}

// Filter narrows List.
type Filter struct {
	Command   string
	SessionID string
	Limit     int
}

// Store journals entries in SQLite, keeping an in-memory copy as fallback.
type Store struct {
	mu      sync.Mutex
	entries []Entry // in-memory fallback
	nextID  int64

	db *sql.DB
}

// Open opens the SQLite database at path and creates the entries table if
// it doesn't exist. It never fails: when the database is unusable the store
// works from memory.
func Open(ctx context.Context, path string) *Store {
	s := &Store{}
	if path == "" {
		return s
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		command TEXT NOT NULL,
		status TEXT NOT NULL,
		content TEXT,
		created_at DATETIME NOT NULL
	);`); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		_ = db.Close()
		return s
	}
	logger.L.Debug("sqlite history DB initialized", "path", path)
	s.db = db
	return s
}

// Persistent reports whether entries reach the database.
func (s *Store) Persistent() bool { return s.db != nil }

// Save records e and returns it with its id and timestamp set.
func (s *Store) Save(ctx context.Context, e Entry) Entry {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		res, err := s.db.ExecContext(ctx, `INSERT INTO entries (session_id, command, status, content, created_at) VALUES (?,?,?,?,?);`,
			e.SessionID, e.Command, e.Status, e.Content, e.CreatedAt)
		if err != nil {
			logger.L.Error("failed to store entry in sqlite; falling back to memory", "error", err)
		} else if id, err := res.LastInsertId(); err == nil {
			e.ID = id
		}
	}
	if e.ID == 0 {
		s.nextID++
		e.ID = s.nextID
	}
	s.entries = append(s.entries, e)
	return e
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	if s.db != nil {
		out, err := s.query(ctx, f)
		if err == nil {
			return out, nil
		}
		logger.L.Warn("sqlite query failed; listing in-memory history", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if f.Command != "" && e.Command != f.Command {
			continue
		}
		if f.SessionID != "" && e.SessionID != f.SessionID {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT id, session_id, command, status, content, created_at FROM entries WHERE 1=1`
	var args []any
	if f.Command != "" {
		q += ` AND command = ?`
		args = append(args, f.Command)
	}
	if f.SessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	q += ` ORDER BY id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var content sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Command, &e.Status, &content, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Content = content.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
