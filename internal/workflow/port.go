package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nordicfin/relion-bridge/internal/dimension"
	"github.com/nordicfin/relion-bridge/internal/mapping"
	"github.com/nordicfin/relion-bridge/internal/relion"
)

// JournalHeader is the result of creating a journal header in D365.
type JournalHeader struct {
	BatchNumber string
}

// JournalService creates journal headers and line batches in D365. Atomicity
// of the line batch is owned by the collaborator, not this workflow.
type JournalService interface {
	CreateHeader(ctx context.Context, companyID string) (*JournalHeader, error)
	CreateLines(ctx context.Context, lines []mapping.JournalLine) error
}

// LineMapper maps one company's ledger lines under a journal batch number.
type LineMapper interface {
	MapLines(ctx context.Context, companyID, journalBatchNumber string, format *dimension.Format, lines []relion.LedgerLine) ([]mapping.JournalLine, error)
}

// DimensionFormatSource fetches the dimension order shared by all lines of an
// import batch.
type DimensionFormatSource interface {
	FetchDimensionFormat(ctx context.Context, name, hierarchyType string) (*dimension.Format, error)
}

// RunStore persists import run outcomes for the status endpoint. A nil-safe
// no-op implementation is acceptable for tests.
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
}

// Run is one recorded import run.
type Run struct {
	ID              uuid.UUID  `json:"id"`
	Trigger         string     `json:"trigger"`
	SourceRef       string     `json:"source_ref"`
	Status          string     `json:"status"`
	CompaniesTotal  int        `json:"companies_total"`
	CompaniesFailed int        `json:"companies_failed"`
	LinesIn         int        `json:"lines_in"`
	LinesCreated    int        `json:"lines_created"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
	RunStatusEmpty     = "empty"
)

// Trigger kinds.
const (
	TriggerFile  = "file"
	TriggerEvent = "event"
)
