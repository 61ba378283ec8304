// Package sequence hands out monotonically increasing commercial
// sequence numbers, one counter per document kind.
package sequence

import (
	"context"

	"github.com/rezonia/facturador/internal/model"
)

// Allocator allocates sequence numbers. Next must be atomic under
// concurrent callers: two callers never observe the same value.
type Allocator interface {
	// Next increments the counter for kind and returns the new value.
	// Fails with *model.AllocationError when the backing store is
	// unreachable; callers treat that as fatal for the attempt.
	Next(ctx context.Context, kind model.DocumentKind) (int64, error)

	// ResetAll sets every counter to 0. Destructive, operator-only:
	// the caller must also purge all issued documents. Never part of
	// the normal issuance flow.
	ResetAll(ctx context.Context) error
}
