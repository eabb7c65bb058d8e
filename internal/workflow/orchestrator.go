// Package workflow fans a batch of Relion ledger lines out across legal
// entities: one journal header + mapped line batch per company, run in
// parallel with partial-failure isolation, joined and aggregated afterwards.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nordicfin/relion-bridge/internal/relion"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

// BatchResult aggregates the per-company outcomes of one import run.
type BatchResult struct {
	RunID     uuid.UUID
	Companies []*CompanyResult
}

// FailedCount returns how many company workflows failed.
func (b *BatchResult) FailedCount() int {
	n := 0
	for _, c := range b.Companies {
		if c.Failed() {
			n++
		}
	}
	return n
}

// LinesCreated returns the total number of journal lines created across all
// completed companies.
func (b *BatchResult) LinesCreated() int {
	n := 0
	for _, c := range b.Companies {
		if !c.Failed() {
			n += c.LinesMapped
		}
	}
	return n
}

// Summary renders the aggregate outcome, e.g. "1 of 2 companies failed".
func (b *BatchResult) Summary() string {
	failed := b.FailedCount()
	if failed == 0 {
		return fmt.Sprintf("all %d companies succeeded", len(b.Companies))
	}
	return fmt.Sprintf("%d of %d companies failed", failed, len(b.Companies))
}

// errorMessages joins the failed companies' errors for the aggregate log line.
func (b *BatchResult) errorMessages() string {
	msgs := make([]string, 0)
	for _, c := range b.Companies {
		if c.Failed() && c.Err != nil {
			msgs = append(msgs, fmt.Sprintf("%s: %v", c.CompanyID, c.Err))
		}
	}
	return strings.Join(msgs, "; ")
}

// Orchestrator drives import runs end to end: parse, group by competence
// unit, fan out company workflows, join, aggregate and record the run.
type Orchestrator struct {
	config   *Config
	journals JournalService
	mapper   LineMapper
	formats  DimensionFormatSource
	runs     RunStore
	logger   *logger.Logger
}

// NewOrchestrator creates a new import orchestrator.
func NewOrchestrator(
	config *Config,
	journals JournalService,
	mapper LineMapper,
	formats DimensionFormatSource,
	runs RunStore,
	log *logger.Logger,
) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()

	return &Orchestrator{
		config:   config,
		journals: journals,
		mapper:   mapper,
		formats:  formats,
		runs:     runs,
		logger:   log.WithField("component", "orchestrator"),
	}
}

// ImportPayload parses a raw Relion export payload and imports it. An empty
// or unparsable payload terminates the run without starting any fan-out; that
// is a logged no-op, not a failure.
func (o *Orchestrator) ImportPayload(ctx context.Context, trigger, sourceRef string, raw []byte) (*BatchResult, error) {
	lines, err := relion.ParsePayload(raw)
	if err != nil {
		o.logger.WithError(err).Warn("payload not importable, skipping run", "source", sourceRef)
		return o.emptyRun(ctx, trigger, sourceRef), nil
	}
	return o.ImportLines(ctx, trigger, sourceRef, lines)
}

// ImportLines imports an already-parsed batch of ledger lines.
func (o *Orchestrator) ImportLines(ctx context.Context, trigger, sourceRef string, lines []relion.LedgerLine) (*BatchResult, error) {
	if len(lines) == 0 {
		o.logger.Info("no lines to import, skipping run", "source", sourceRef)
		return o.emptyRun(ctx, trigger, sourceRef), nil
	}

	run := &Run{
		ID:        uuid.New(),
		Trigger:   trigger,
		SourceRef: sourceRef,
		Status:    RunStatusRunning,
		LinesIn:   len(lines),
		StartedAt: time.Now().UTC(),
	}
	if err := o.runs.CreateRun(ctx, run); err != nil {
		// The run log is observability, not a processing dependency.
		o.logger.WithError(err).Error("failed to record import run")
	}

	ctx = context.WithValue(ctx, logger.RunIDKey, run.ID.String())
	log := o.logger.WithContext(ctx)

	// The dimension order is fetched once and shared by every company's
	// mapping pass; it must not change mid-batch.
	format, err := o.formats.FetchDimensionFormat(ctx, o.config.DimensionFormatName, o.config.DimensionHierarchyType)
	if err != nil {
		log.WithError(err).Error("failed to fetch dimension format, aborting run")
		o.finishRun(ctx, run, nil, err)
		return nil, fmt.Errorf("failed to fetch dimension format: %w", err)
	}

	groups := relion.GroupByCompetenceUnit(lines)
	companies := relion.CompanyIDs(groups)

	log.Info("starting company fan-out",
		"companies", len(companies),
		"lines", len(lines),
		"source", sourceRef)

	result := &BatchResult{
		RunID:     run.ID,
		Companies: make([]*CompanyResult, len(companies)),
	}

	// All companies run to completion or failure independently; the join is
	// wait-for-all, never fail-fast.
	sem := make(chan struct{}, o.config.ConcurrentCompanies)
	var wg sync.WaitGroup

	worker := &companyRun{
		journals: o.journals,
		mapper:   o.mapper,
		logger:   log,
	}

	for i, companyID := range companies {
		sem <- struct{}{}
		wg.Add(1)
		go func(slot int, companyID string) {
			defer wg.Done()
			defer func() { <-sem }()
			result.Companies[slot] = worker.run(ctx, companyID, format, groups[companyID])
		}(i, companyID)
	}
	wg.Wait()

	if failed := result.FailedCount(); failed > 0 {
		log.Error("import finished with failed companies",
			"summary", result.Summary(),
			"errors", result.errorMessages())
	} else {
		log.Info("import finished", "summary", result.Summary(), "lines_created", result.LinesCreated())
	}

	o.finishRun(ctx, run, result, nil)
	return result, nil
}

// GetRun returns a recorded import run.
func (o *Orchestrator) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	return o.runs.GetRun(ctx, id)
}

// emptyRun records a no-op run for traceability and returns an empty result.
func (o *Orchestrator) emptyRun(ctx context.Context, trigger, sourceRef string) *BatchResult {
	now := time.Now().UTC()
	run := &Run{
		ID:         uuid.New(),
		Trigger:    trigger,
		SourceRef:  sourceRef,
		Status:     RunStatusEmpty,
		StartedAt:  now,
		FinishedAt: &now,
	}
	if err := o.runs.CreateRun(ctx, run); err != nil {
		o.logger.WithError(err).Error("failed to record empty import run")
	}
	return &BatchResult{RunID: run.ID}
}

// finishRun stamps the terminal run status into the run log.
func (o *Orchestrator) finishRun(ctx context.Context, run *Run, result *BatchResult, runErr error) {
	now := time.Now().UTC()
	run.FinishedAt = &now

	switch {
	case runErr != nil:
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
	case result.FailedCount() == len(result.Companies) && len(result.Companies) > 0:
		run.Status = RunStatusFailed
		run.CompaniesTotal = len(result.Companies)
		run.CompaniesFailed = result.FailedCount()
		run.Error = result.errorMessages()
	case result.FailedCount() > 0:
		run.Status = RunStatusPartial
		run.CompaniesTotal = len(result.Companies)
		run.CompaniesFailed = result.FailedCount()
		run.LinesCreated = result.LinesCreated()
		run.Error = result.errorMessages()
	default:
		run.Status = RunStatusSucceeded
		run.CompaniesTotal = len(result.Companies)
		run.LinesCreated = result.LinesCreated()
	}

	if err := o.runs.FinishRun(ctx, run); err != nil {
		o.logger.WithError(err).Error("failed to finish import run record")
	}
}
