package repository

import (
	"context"
	"errors"
	"time"

	"acceptapi/internal/model"
)

// ErrNotFound is returned when no row matches the lookup.
var ErrNotFound = errors.New("not found")

// ErrNotUpdated is returned by conditional updates whose predicate matched no row.
var ErrNotUpdated = errors.New("no row updated")

// DocumentRepository defines data access for acceptance documents using SQL queries only.
// No business logic here; strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.AcceptanceDocument) (*model.AcceptanceDocument, error)

	// FindByID returns a document by its ID or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.AcceptanceDocument, error)

	// FindByEnvelopeID returns the document sent as the given e-signature envelope or ErrNotFound.
	FindByEnvelopeID(ctx context.Context, envelopeID string) (*model.AcceptanceDocument, error)

	// List returns a paginated list of documents and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.AcceptanceDocument], error)

	// MarkAccepted records the acceptance only if the document is not yet accepted,
	// not revoked and not expired at a.AcceptedAt. Otherwise it returns ErrNotUpdated.
	MarkAccepted(ctx context.Context, id string, a model.Acceptance) (*model.AcceptanceDocument, error)

	// Revoke stamps revoked_at on a document that has not been accepted yet.
	// It returns ErrNotUpdated when the document is accepted or already revoked.
	Revoke(ctx context.Context, id string, at time.Time) error
}

// DeliveryRepository stores per-channel notification outcomes.
type DeliveryRepository interface {
	// Record inserts the outcome rows for one acceptance.
	Record(ctx context.Context, deliveries []model.Delivery) error

	// ListByDocument returns the rows for a document in insertion order.
	ListByDocument(ctx context.Context, documentID string) ([]model.Delivery, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
