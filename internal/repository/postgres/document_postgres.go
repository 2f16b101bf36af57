package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"acceptapi/internal/model"
	"acceptapi/internal/repository"
)

const documentColumns = `id, short_code, client_name, recipient_email, recipient_phone, token_hash,
		provider, envelope_id, storage_path, size, issued_at, expires_at,
		accepted_at, client_ip, user_agent, timezone, accept_method, revoked_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.AcceptanceDocument, error) {
	var (
		d          model.AcceptanceDocument
		acceptedAt sql.NullTime
		revokedAt  sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.ShortCode,
		&d.ClientName,
		&d.RecipientEmail,
		&d.RecipientPhone,
		&d.TokenHash,
		&d.Provider,
		&d.EnvelopeID,
		&d.StoragePath,
		&d.Size,
		&d.IssuedAt,
		&d.ExpiresAt,
		&acceptedAt,
		&d.ClientIP,
		&d.UserAgent,
		&d.Timezone,
		&d.AcceptMethod,
		&revokedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
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

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.AcceptanceDocument) (*model.AcceptanceDocument, error) {
	const q = `
		INSERT INTO acceptance_documents (id, short_code, client_name, recipient_email, recipient_phone,
			token_hash, provider, envelope_id, storage_path, size, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.ShortCode,
		doc.ClientName,
		doc.RecipientEmail,
		doc.RecipientPhone,
		doc.TokenHash,
		doc.Provider,
		doc.EnvelopeID,
		doc.StoragePath,
		doc.Size,
		doc.IssuedAt,
		doc.ExpiresAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.AcceptanceDocument, error) {
	q := `SELECT ` + documentColumns + ` FROM acceptance_documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByEnvelopeID fetches the document sent as an e-signature envelope.
func (r *DocumentPostgres) FindByEnvelopeID(ctx context.Context, envelopeID string) (*model.AcceptanceDocument, error) {
	if envelopeID == "" {
		return nil, repository.ErrNotFound
	}
	q := `SELECT ` + documentColumns + ` FROM acceptance_documents WHERE envelope_id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, envelopeID))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.AcceptanceDocument], error) {
	const qCount = `SELECT COUNT(*) FROM acceptance_documents`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	qList := `SELECT ` + documentColumns + `
		FROM acceptance_documents
		ORDER BY issued_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
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

	return &repository.PageResult[model.AcceptanceDocument]{
		Items: items,
		Total: total,
	}, nil
}

// MarkAccepted consumes the document in a single conditional UPDATE.
func (r *DocumentPostgres) MarkAccepted(ctx context.Context, id string, a model.Acceptance) (*model.AcceptanceDocument, error) {
	const q = `
		UPDATE acceptance_documents
		SET accepted_at = $2, client_ip = $3, user_agent = $4, timezone = $5, accept_method = $6
		WHERE id = $1 AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > $2
		RETURNING ` + documentColumns
	d, err := scanDocument(r.db.QueryRowContext(ctx, q,
		id, a.AcceptedAt, a.ClientIP, a.UserAgent, a.Timezone, a.Method,
	))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrNotUpdated
	}
	return d, err
}

// Revoke marks a pending document as revoked.
func (r *DocumentPostgres) Revoke(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE acceptance_documents
		SET revoked_at = $2
		WHERE id = $1 AND accepted_at IS NULL AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
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
