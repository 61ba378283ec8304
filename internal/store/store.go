// Package store persists issued documents. Upserts are keyed by
// access key when present, falling back to the record id, so a
// document that changes access key mid-flow updates the same logical
// record instead of creating a ghost entry.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rezonia/facturador/internal/model"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("store: record not found")

// Store is the billing record repository.
type Store interface {
	Upsert(ctx context.Context, doc *model.Document) (*model.Document, error)
	FindByAccessKey(ctx context.Context, accessKey string) (*model.Document, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)

	// DeleteAll purges every record. Only invoked together with a
	// sequence counter reset by the destructive operator command.
	DeleteAll(ctx context.Context) error
}
