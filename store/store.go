// Package store persists uploaded policy documents in Postgres and
// loads them back as an extracted section corpus for queries.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabfab/policy-qa/doc"
)

var ErrNotFound = errors.New("document not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS policy_documents (
			id UUID PRIMARY KEY,
			file_name TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
			content BYTEA NOT NULL,
			sha256 TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS idx_policy_documents_uploaded ON policy_documents(uploaded_at)",
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// Save stores a document, assigning an id and content hash when the
// caller did not set them.
func (s *Store) Save(ctx context.Context, document doc.Document) (doc.Document, error) {
	if document.ID == "" {
		document.ID = uuid.New().String()
	}
	if document.SHA256 == "" {
		sum := sha256.Sum256(document.Data)
		document.SHA256 = hex.EncodeToString(sum[:])
	}
	if document.ContentType == "" {
		document.ContentType = "application/octet-stream"
	}
	document.SizeBytes = int64(len(document.Data))
	if document.UploadedAt.IsZero() {
		document.UploadedAt = time.Now().UTC()
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO policy_documents (id, file_name, content_type, content, sha256, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, document.ID, document.FileName, document.ContentType, document.Data, document.SHA256, document.SizeBytes, document.UploadedAt); err != nil {
		return doc.Document{}, fmt.Errorf("insert document: %w", err)
	}

	return document, nil
}

// List returns document metadata (no content), oldest first so corpus
// order is stable across queries.
func (s *Store) List(ctx context.Context) ([]doc.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, content_type, sha256, size_bytes, uploaded_at
		FROM policy_documents
		ORDER BY uploaded_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var documents []doc.Document
	for rows.Next() {
		var d doc.Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.ContentType, &d.SHA256, &d.SizeBytes, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return documents, nil
}

// Get returns one document including its content.
func (s *Store) Get(ctx context.Context, id string) (doc.Document, error) {
	var d doc.Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, file_name, content_type, content, sha256, size_bytes, uploaded_at
		FROM policy_documents WHERE id = $1
	`, id).Scan(&d.ID, &d.FileName, &d.ContentType, &d.Data, &d.SHA256, &d.SizeBytes, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return doc.Document{}, ErrNotFound
		}
		return doc.Document{}, fmt.Errorf("query document: %w", err)
	}
	return d, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM policy_documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every stored document.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE policy_documents"); err != nil {
		return fmt.Errorf("truncate policy_documents: %w", err)
	}
	return nil
}
