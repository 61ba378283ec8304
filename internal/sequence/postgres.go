package sequence

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rezonia/facturador/internal/model"
)

// PostgresAllocator backs counters with a sequence_counters table.
// The increment is a single INSERT ... ON CONFLICT ... RETURNING
// statement, so concurrent callers serialize at the row lock and
// always see distinct consecutive values.
type PostgresAllocator struct {
	db *sql.DB
}

var _ Allocator = (*PostgresAllocator)(nil)

// NewPostgresAllocator creates an allocator on an open database handle.
func NewPostgresAllocator(db *sql.DB) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

func (a *PostgresAllocator) Next(ctx context.Context, kind model.DocumentKind) (int64, error) {
	if !kind.Valid() {
		return 0, model.NewValidationError("kind", "unsupported document kind code")
	}
	var value int64
	err := a.db.QueryRowContext(ctx, `
		insert into sequence_counters(kind, value) values ($1, 1)
		on conflict (kind) do update set value = sequence_counters.value + 1
		returning value
	`, string(kind)).Scan(&value)
	if err != nil {
		return 0, model.NewAllocationError(kind, err)
	}
	return value, nil
}

func (a *PostgresAllocator) ResetAll(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `update sequence_counters set value = 0`); err != nil {
		return model.NewAllocationError("", err)
	}
	return nil
}

// Backfill raises a counter to at least the highest sequence already
// persisted for its kind. Used once when adopting historical records,
// never during issuance.
func (a *PostgresAllocator) Backfill(ctx context.Context, kind model.DocumentKind, floor int64) error {
	_, err := a.db.ExecContext(ctx, `
		insert into sequence_counters(kind, value) values ($1, $2)
		on conflict (kind) do update set value = greatest(sequence_counters.value, excluded.value)
	`, string(kind), floor)
	if err != nil {
		return model.NewAllocationError(kind, err)
	}
	return nil
}
