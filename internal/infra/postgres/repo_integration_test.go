//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nordicfin/relion-bridge/internal/shared/errors"
	"github.com/nordicfin/relion-bridge/internal/workflow"
	"github.com/nordicfin/relion-bridge/testutil/testdb"
)

var testDB *testdb.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testdb.NewTestDB(ctx)
	if err != nil {
		panic("failed to create test database: " + err.Error())
	}

	code := m.Run()

	testDB.Close(ctx)
	if code != 0 {
		panic("tests failed")
	}
}

func setupTest(t *testing.T) context.Context {
	ctx := context.Background()
	require.NoError(t, testDB.Reset(ctx))
	return ctx
}

// Error sink tests

func TestErrorRepository_Record(t *testing.T) {
	ctx := setupTest(t)
	repo := NewErrorRepository(testDB.Pool)

	err := repo.Record(ctx, "DE01", "1001", "entry 1001 has posting type 1 but no posting group", "RelionJournalImport")
	require.NoError(t, err)

	var companyID, sourceEntryID, message, origin string
	var recordedAt time.Time
	err = testDB.Pool.QueryRow(ctx, `
		SELECT company_id, source_entry_id, message, origin, recorded_at
		FROM import_errors
	`).Scan(&companyID, &sourceEntryID, &message, &origin, &recordedAt)
	require.NoError(t, err)

	assert.Equal(t, "DE01", companyID)
	assert.Equal(t, "1001", sourceEntryID)
	assert.Equal(t, "entry 1001 has posting type 1 but no posting group", message)
	assert.Equal(t, "RelionJournalImport", origin)
	assert.WithinDuration(t, time.Now().UTC(), recordedAt, time.Minute)
}

func TestErrorRepository_Record_AppendOnly(t *testing.T) {
	ctx := setupTest(t)
	repo := NewErrorRepository(testDB.Pool)

	// The same entry can fail more than once across re-deliveries; every
	// occurrence is kept.
	require.NoError(t, repo.Record(ctx, "DE01", "1001", "first failure", "RelionJournalImport"))
	require.NoError(t, repo.Record(ctx, "DE01", "1001", "second failure", "RelionJournalImport"))

	var count int
	err := testDB.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM import_errors WHERE company_id = $1 AND source_entry_id = $2
	`, "DE01", "1001").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// Import run log tests

func sampleRun() *workflow.Run {
	return &workflow.Run{
		ID:        uuid.New(),
		Trigger:   workflow.TriggerFile,
		SourceRef: "exports/batch-7.json",
		Status:    workflow.RunStatusRunning,
		LinesIn:   12,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRunRepository_CreateAndGetRun(t *testing.T) {
	ctx := setupTest(t)
	repo := NewRunRepository(testDB.Pool)

	run := sampleRun()
	require.NoError(t, repo.CreateRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, workflow.TriggerFile, got.Trigger)
	assert.Equal(t, "exports/batch-7.json", got.SourceRef)
	assert.Equal(t, workflow.RunStatusRunning, got.Status)
	assert.Equal(t, 12, got.LinesIn)
	assert.Empty(t, got.Error)
	assert.Nil(t, got.FinishedAt)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Second)
}

func TestRunRepository_FinishRun(t *testing.T) {
	ctx := setupTest(t)
	repo := NewRunRepository(testDB.Pool)

	run := sampleRun()
	require.NoError(t, repo.CreateRun(ctx, run))

	now := time.Now().UTC().Truncate(time.Microsecond)
	run.Status = workflow.RunStatusPartial
	run.CompaniesTotal = 2
	run.CompaniesFailed = 1
	run.LinesCreated = 5
	run.Error = "DE02: UPSTREAM_ERROR: journal header creation failed"
	run.FinishedAt = &now

	require.NoError(t, repo.FinishRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, workflow.RunStatusPartial, got.Status)
	assert.Equal(t, 2, got.CompaniesTotal)
	assert.Equal(t, 1, got.CompaniesFailed)
	assert.Equal(t, 5, got.LinesCreated)
	assert.Equal(t, run.Error, got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, now, *got.FinishedAt, time.Second)
}

func TestRunRepository_FinishRun_UnknownRun(t *testing.T) {
	ctx := setupTest(t)
	repo := NewRunRepository(testDB.Pool)

	now := time.Now().UTC()
	run := sampleRun()
	run.FinishedAt = &now

	err := repo.FinishRun(ctx, run)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestRunRepository_GetRun_NotFound(t *testing.T) {
	ctx := setupTest(t)
	repo := NewRunRepository(testDB.Pool)

	_, err := repo.GetRun(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}
