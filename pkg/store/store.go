// Package store keeps a history of finished generation requests in SQLite.
// Recovered documents are stored once per distinct content.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no generation has the given ID.
var ErrNotFound = errors.New("generation not found")

// Store is a SQLite-backed generation history.
type Store struct {
	db   *sql.DB
	path string
}

// Record is one finished generation.
type Record struct {
	ID        string
	CreatedAt time.Time
	Provider  string
	Model     string
	Prompt    string

	// Document is set when recovery succeeded; Fingerprint identifies it.
	Document    *artifact.Document
	Fingerprint string

	// Failure fields, set when recovery failed.
	Reason   artifact.Reason
	Message  string
	Excerpt  string
	Salvaged map[string]string

	TransportError string
	Chunks         int
	Bytes          int
}

// NewRecord builds a Record from the outcome of artifact.Run.
func NewRecord(id, provider, model, prompt string, out *artifact.Outcome) Record {
	rec := Record{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Provider:  provider,
		Model:     model,
		Prompt:    prompt,
		Chunks:    out.Chunks,
		Bytes:     out.Bytes,
	}
	if out.TransportErr != nil {
		rec.TransportError = out.TransportErr.Error()
	}
	if out.Document != nil {
		doc := *out.Document
		rec.Document = &doc
		rec.Fingerprint = Fingerprint(&doc)
	}
	if f := out.Failure; f != nil {
		rec.Reason = f.Reason
		rec.Message = f.Message
		rec.Excerpt = f.Excerpt
		rec.Salvaged = f.Salvaged
	}
	return rec
}

// Open opens or creates the database at path. The parent directory is
// created if needed; ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" to one database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() // Close error less important than schema error
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rec. A document already stored under the same fingerprint is
// reused. Saving an existing ID fails.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("record has no ID")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var salvaged sql.NullString
	if len(rec.Salvaged) > 0 {
		b, err := json.Marshal(rec.Salvaged)
		if err != nil {
			return fmt.Errorf("failed to encode salvaged fields: %w", err)
		}
		salvaged = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var fingerprint sql.NullString
	if rec.Document != nil {
		if rec.Fingerprint == "" {
			rec.Fingerprint = Fingerprint(rec.Document)
		}
		fingerprint = sql.NullString{String: rec.Fingerprint, Valid: true}
		body, size, err := encodeDocument(rec.Document)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO documents (fingerprint, body, size) VALUES (?, ?, ?)`,
			rec.Fingerprint, body, size,
		); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO generations (
			id, created_at, provider, model, prompt, fingerprint,
			reason, message, excerpt, salvaged, transport_error, chunks, bytes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt, rec.Provider, rec.Model, rec.Prompt, fingerprint,
		nullString(string(rec.Reason)), nullString(rec.Message), nullString(rec.Excerpt), salvaged,
		nullString(rec.TransportError), rec.Chunks, rec.Bytes,
	); err != nil {
		return fmt.Errorf("failed to insert generation %s: %w", rec.ID, err)
	}

	return tx.Commit()
}

const selectRecord = `
	SELECT g.id, g.created_at, g.provider, g.model, g.prompt, g.fingerprint,
	       d.body,
	       g.reason, g.message, g.excerpt, g.salvaged, g.transport_error, g.chunks, g.bytes
	FROM generations g
	LEFT JOIN documents d ON d.fingerprint = g.fingerprint`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec                                      Record
		provider, model, prompt, fingerprint     sql.NullString
		body                                     []byte
		reason, message, excerpt, salvaged, terr sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &rec.CreatedAt, &provider, &model, &prompt, &fingerprint,
		&body,
		&reason, &message, &excerpt, &salvaged, &terr, &rec.Chunks, &rec.Bytes,
	); err != nil {
		return nil, err
	}

	rec.Provider, rec.Model, rec.Prompt = provider.String, model.String, prompt.String
	if fingerprint.Valid {
		rec.Fingerprint = fingerprint.String
		doc, err := decodeDocument(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", rec.Fingerprint, err)
		}
		rec.Document = doc
	}
	rec.Reason = artifact.Reason(reason.String)
	rec.Message, rec.Excerpt, rec.TransportError = message.String, excerpt.String, terr.String
	if salvaged.Valid {
		if err := json.Unmarshal([]byte(salvaged.String), &rec.Salvaged); err != nil {
			return nil, fmt.Errorf("failed to decode salvaged fields: %w", err)
		}
	}
	return &rec, nil
}

// Get returns the generation with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+` WHERE g.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation %s: %w", id, err)
	}
	return rec, nil
}

// List returns the most recent generations, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectRecord+` ORDER BY g.created_at DESC, g.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// CountDocuments returns the number of distinct documents stored.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
