// Package journal persists per-request processing records to SQLite
// asynchronously. Recording never blocks or fails the request path; entries
// are dropped when the buffer is full.
package journal

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// Schema for the request_journal table. Call Store.Init() or apply manually.
const Schema = `
CREATE TABLE IF NOT EXISTS request_journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	op TEXT NOT NULL,
	media_type TEXT,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL,
	error_kind TEXT,
	partial INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_created ON request_journal(created_at);
CREATE INDEX IF NOT EXISTS idx_journal_rid ON request_journal(request_id);
`

// Entry is one recorded request.
type Entry struct {
	RequestID  string
	Op         string
	MediaType  string
	SizeBytes  int64
	Outcome    string
	ErrorKind  string
	Partial    bool
	DurationMs int64
	CreatedAt  int64
}

// Store persists journal entries asynchronously in batches.
type Store struct {
	db   *sql.DB
	ch   chan *Entry
	done chan struct{}
	once sync.Once
}

// NewStore creates a journal store backed by the given database connection
// and starts its flush goroutine.
func NewStore(db *sql.DB) *Store {
	s := &Store{
		db:   db,
		ch:   make(chan *Entry, 1024),
		done: make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Init creates the request_journal table if it doesn't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// RecordAsync queues an entry for async persistence. Non-blocking; drops if
// the buffer is full.
func (s *Store) RecordAsync(e *Entry) {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	select {
	case s.ch <- e:
	default:
		// buffer full, drop rather than backpressure the request path
	}
}

// Close drains the buffer and stops the flush goroutine.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return nil
}

// Recent returns the latest n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT request_id, op, media_type, size_bytes, outcome,
		error_kind, partial, duration_ms, created_at
		FROM request_journal ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var partial int
		if err := rows.Scan(&e.RequestID, &e.Op, &e.MediaType, &e.SizeBytes,
			&e.Outcome, &e.ErrorKind, &partial, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Partial = partial != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) flushLoop() {
	defer close(s.done)

	batch := make([]*Entry, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				s.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 64 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *Store) flushBatch(batch []*Entry) {
	if len(batch) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("journal: begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO request_journal
		(request_id, op, media_type, size_bytes, outcome, error_kind, partial, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		slog.Error("journal: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		partial := 0
		if e.Partial {
			partial = 1
		}
		if _, err := stmt.Exec(e.RequestID, e.Op, e.MediaType, e.SizeBytes,
			e.Outcome, e.ErrorKind, partial, e.DurationMs, e.CreatedAt); err != nil {
			slog.Error("journal: insert", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("journal: commit", "error", err)
	}
}
