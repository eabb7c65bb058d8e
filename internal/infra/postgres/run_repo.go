package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/nordicfin/relion-bridge/internal/shared/errors"
	"github.com/nordicfin/relion-bridge/internal/workflow"
)

// RunRepository persists import runs for the status endpoint.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// CreateRun records a newly started import run
func (r *RunRepository) CreateRun(ctx context.Context, run *workflow.Run) error {
	query := `
		INSERT INTO import_runs (id, trigger_kind, source_ref, status, lines_in, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Trigger,
		run.SourceRef,
		run.Status,
		run.LinesIn,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}

	return nil
}

// FinishRun stamps the terminal status and aggregate counts of a run
func (r *RunRepository) FinishRun(ctx context.Context, run *workflow.Run) error {
	query := `
		UPDATE import_runs
		SET status = $2,
			companies_total = $3,
			companies_failed = $4,
			lines_created = $5,
			error_message = $6,
			finished_at = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.CompaniesTotal,
		run.CompaniesFailed,
		run.LinesCreated,
		run.Error,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finish import run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("import run")
	}

	return nil
}

// GetRun retrieves one import run by ID
func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*workflow.Run, error) {
	query := `
		SELECT id, trigger_kind, source_ref, status, companies_total, companies_failed,
			lines_in, lines_created, error_message, started_at, finished_at
		FROM import_runs
		WHERE id = $1
	`

	var run workflow.Run
	var errorMessage sql.NullString
	var finishedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.Trigger,
		&run.SourceRef,
		&run.Status,
		&run.CompaniesTotal,
		&run.CompaniesFailed,
		&run.LinesIn,
		&run.LinesCreated,
		&errorMessage,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("import run")
		}
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	if errorMessage.Valid {
		run.Error = errorMessage.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}
