// Package store persists extracted outline records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/docoutline/internal/outline"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no document matches the given id.
var ErrNotFound = errors.New("document not found")

// Document is one stored extraction result.
type Document struct {
	DocID       string         `json:"doc_id"`
	Filename    string         `json:"filename"`
	Title       string         `json:"title"`
	Method      string         `json:"method"`
	ContentHash string         `json:"content_hash"`
	Source      string         `json:"source,omitempty"`
	Record      outline.Record `json:"record"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Summary is the listing view of a Document, without its outline.
type Summary struct {
	DocID     string    `json:"doc_id"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Method    string    `json:"method"`
	Entries   int       `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies Schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	s := &Store{db: db}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the documents table if it doesn't exist.
func (s *Store) Init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a document.
func (s *Store) Put(ctx context.Context, d *Document) error {
	if d.DocID == "" {
		return fmt.Errorf("put document: empty doc id")
	}
	rec, err := json.Marshal(d.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents
			(doc_id, filename, title, method, content_hash, source, record_json, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		d.DocID, d.Filename, d.Record.Title, d.Method, d.ContentHash, d.Source, string(rec), d.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put document %s: %w", d.DocID, err)
	}
	d.Title = d.Record.Title
	return nil
}

// Get returns the document with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, docID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, filename, title, method, content_hash, source, record_json, created_at
		FROM documents WHERE doc_id = ?`, docID)
	return scanDocument(row)
}

// FindByHash returns the newest document with the given content hash,
// or ErrNotFound.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, filename, title, method, content_hash, source, record_json, created_at
		FROM documents WHERE content_hash = ?
		ORDER BY created_at DESC LIMIT 1`, hash)
	return scanDocument(row)
}

// List returns up to limit summaries, newest first. limit <= 0 means 100.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, filename, title, method, record_json, created_at
		FROM documents ORDER BY created_at DESC, doc_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			recJSON string
			created int64
		)
		if err := rows.Scan(&sum.DocID, &sum.Filename, &sum.Title, &sum.Method, &recJSON, &created); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var rec outline.Record
		if err := json.Unmarshal([]byte(recJSON), &rec); err == nil {
			sum.Entries = len(rec.Outline)
		}
		sum.CreatedAt = time.UnixMilli(created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a document. It returns ErrNotFound if nothing was deleted.
func (s *Store) Delete(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row *sql.Row) (*Document, error) {
	var (
		d       Document
		recJSON string
		created int64
	)
	err := row.Scan(&d.DocID, &d.Filename, &d.Title, &d.Method, &d.ContentHash, &d.Source, &recJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if err := json.Unmarshal([]byte(recJSON), &d.Record); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", d.DocID, err)
	}
	d.CreatedAt = time.UnixMilli(created)
	return &d, nil
}
