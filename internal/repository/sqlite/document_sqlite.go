// Package sqlite implements the repositories on a single-file SQLite database,
// for local runs and the CLI. All timestamps are written in UTC so that the
// driver's textual encoding orders the same way as the instants it encodes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"acceptapi/internal/model"
	"acceptapi/internal/repository"
)

const documentColumns = `id, short_code, client_name, recipient_email, recipient_phone, token_hash,
		provider, envelope_id, storage_path, size, issued_at, expires_at,
		accepted_at, client_ip, user_agent, timezone, accept_method, revoked_at`

// DocumentRepository handles acceptance document persistence.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

func scanDocument(row interface{ Scan(...any) error }) (*model.AcceptanceDocument, error) {
	var (
		d          model.AcceptanceDocument
		acceptedAt sql.NullTime
		revokedAt  sql.NullTime
	)
	err := row.Scan(&d.ID, &d.ShortCode, &d.ClientName, &d.RecipientEmail, &d.RecipientPhone, &d.TokenHash,
		&d.Provider, &d.EnvelopeID, &d.StoragePath, &d.Size, &d.IssuedAt, &d.ExpiresAt,
		&acceptedAt, &d.ClientIP, &d.UserAgent, &d.Timezone, &d.AcceptMethod, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		d.AcceptedAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		d.RevokedAt = &t
	}
	return &d, nil
}

// Create inserts a new document and reads it back.
func (r *DocumentRepository) Create(ctx context.Context, doc *model.AcceptanceDocument) (*model.AcceptanceDocument, error) {
	const q = `
		INSERT INTO acceptance_documents (id, short_code, client_name, recipient_email, recipient_phone,
			token_hash, provider, envelope_id, storage_path, size, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, q,
		doc.ID, doc.ShortCode, doc.ClientName, doc.RecipientEmail, doc.RecipientPhone,
		doc.TokenHash, doc.Provider, doc.EnvelopeID, doc.StoragePath, doc.Size,
		doc.IssuedAt.UTC(), doc.ExpiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return r.FindByID(ctx, doc.ID)
}

// FindByID returns a document by its ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*model.AcceptanceDocument, error) {
	q := `SELECT ` + documentColumns + ` FROM acceptance_documents WHERE id = ? LIMIT 1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByEnvelopeID returns the document sent as envelopeID.
func (r *DocumentRepository) FindByEnvelopeID(ctx context.Context, envelopeID string) (*model.AcceptanceDocument, error) {
	if envelopeID == "" {
		return nil, repository.ErrNotFound
	}
	q := `SELECT ` + documentColumns + ` FROM acceptance_documents WHERE envelope_id = ? LIMIT 1`
	return scanDocument(r.db.QueryRowContext(ctx, q, envelopeID))
}

// List returns a page of documents, newest first.
func (r *DocumentRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.AcceptanceDocument], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM acceptance_documents`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	q := `SELECT ` + documentColumns + ` FROM acceptance_documents ORDER BY issued_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]model.AcceptanceDocument, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.AcceptanceDocument]{Items: items, Total: total}, nil
}

// MarkAccepted consumes a pending document.
func (r *DocumentRepository) MarkAccepted(ctx context.Context, id string, a model.Acceptance) (*model.AcceptanceDocument, error) {
	const q = `
		UPDATE acceptance_documents
		SET accepted_at = ?, client_ip = ?, user_agent = ?, timezone = ?, accept_method = ?
		WHERE id = ? AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > ?
	`
	at := a.AcceptedAt.UTC()
	res, err := r.db.ExecContext(ctx, q, at, a.ClientIP, a.UserAgent, a.Timezone, a.Method, id, at)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotUpdated
	}
	return r.FindByID(ctx, id)
}

// Revoke marks a pending document as revoked.
func (r *DocumentRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE acceptance_documents
		SET revoked_at = ?
		WHERE id = ? AND accepted_at IS NULL AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("revoke document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotUpdated
	}
	return nil
}
