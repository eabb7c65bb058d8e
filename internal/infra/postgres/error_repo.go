package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrorRepository is the durable error sink: an append-only log of
// unmappable line occurrences, keyed by company and source entry, read by
// operators for triage, never read back by the import itself.
type ErrorRepository struct {
	pool *pgxpool.Pool
}

// NewErrorRepository creates a new PostgreSQL error repository
func NewErrorRepository(pool *pgxpool.Pool) *ErrorRepository {
	return &ErrorRepository{pool: pool}
}

// Record appends one error occurrence.
func (r *ErrorRepository) Record(ctx context.Context, companyID, sourceEntryID, message, origin string) error {
	query := `
		INSERT INTO import_errors (company_id, source_entry_id, message, origin, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		companyID,
		sourceEntryID,
		message,
		origin,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record import error: %w", err)
	}

	return nil
}
