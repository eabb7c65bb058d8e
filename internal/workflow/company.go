package workflow

import (
	"context"

	"github.com/nordicfin/relion-bridge/internal/dimension"
	"github.com/nordicfin/relion-bridge/internal/relion"
	apperrors "github.com/nordicfin/relion-bridge/internal/shared/errors"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

// CompanyState is a step in a single company's import workflow.
type CompanyState string

const (
	StateStarted       CompanyState = "Started"
	StateHeaderCreated CompanyState = "HeaderCreated"
	StateLinesMapped   CompanyState = "LinesMapped"
	StateLinesCreated  CompanyState = "LinesCreated"
	StateCompleted     CompanyState = "Completed"
	StateFailed        CompanyState = "Failed"
)

// CompanyResult is the terminal outcome of one company's workflow.
type CompanyResult struct {
	CompanyID   string
	State       CompanyState
	BatchNumber string
	LinesIn     int
	LinesMapped int
	Err         error
}

// Failed reports whether the company's workflow ended in the absorbing
// failure state.
func (r *CompanyResult) Failed() bool {
	return r.State == StateFailed
}

// companyRun advances one company through the header-creation, line-mapping
// and line-creation steps. Each step either moves the state forward or drops
// into StateFailed; there are no retries here, redelivery is the caller's
// concern.
type companyRun struct {
	journals JournalService
	mapper   LineMapper
	logger   *logger.Logger
}

// run executes the workflow for one company in isolation. The returned result
// always carries a terminal state, never an intermediate one.
func (c *companyRun) run(ctx context.Context, companyID string, format *dimension.Format, lines []relion.LedgerLine) *CompanyResult {
	result := &CompanyResult{
		CompanyID: companyID,
		State:     StateStarted,
		LinesIn:   len(lines),
	}
	log := c.logger.WithField("company", companyID)

	header, err := c.journals.CreateHeader(ctx, companyID)
	if err != nil {
		log.WithError(err).Error("journal header creation failed")
		return result.fail(apperrors.Upstream("journal header creation failed", err))
	}
	if header == nil || header.BatchNumber == "" {
		// The collaborator reported success without a batch number; nothing
		// downstream can attach lines to such a header.
		log.Error("journal header created without batch number")
		return result.fail(apperrors.MissingBatchNumber(companyID))
	}
	result.State = StateHeaderCreated
	result.BatchNumber = header.BatchNumber
	log.Info("journal header created", "batch_number", header.BatchNumber)

	if len(lines) == 0 {
		// An empty company group is a valid no-op, not an error.
		result.State = StateCompleted
		log.Info("no lines for company, completing")
		return result
	}

	mapped, err := c.mapper.MapLines(ctx, companyID, header.BatchNumber, format, lines)
	if err != nil {
		log.WithError(err).Error("line mapping failed")
		return result.fail(err)
	}
	result.State = StateLinesMapped
	result.LinesMapped = len(mapped)

	if len(mapped) == 0 {
		result.State = StateCompleted
		log.Warn("all lines were skipped during mapping", "lines_in", len(lines))
		return result
	}

	if err := c.journals.CreateLines(ctx, mapped); err != nil {
		log.WithError(err).Error("journal line creation failed")
		return result.fail(apperrors.Upstream("journal line creation failed", err))
	}
	result.State = StateLinesCreated

	result.State = StateCompleted
	log.Info("company import completed",
		"batch_number", header.BatchNumber,
		"lines_in", len(lines),
		"lines_created", len(mapped))
	return result
}

func (r *CompanyResult) fail(err error) *CompanyResult {
	r.State = StateFailed
	r.Err = err
	return r
}
