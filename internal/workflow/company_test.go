package workflow

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nordicfin/relion-bridge/internal/dimension"
	"github.com/nordicfin/relion-bridge/internal/mapping"
	"github.com/nordicfin/relion-bridge/internal/relion"
	apperrors "github.com/nordicfin/relion-bridge/internal/shared/errors"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

// =============================================================================
// Mocks
// =============================================================================

type MockJournalService struct {
	mock.Mock
}

func (m *MockJournalService) CreateHeader(ctx context.Context, companyID string) (*JournalHeader, error) {
	args := m.Called(ctx, companyID)
	header, _ := args.Get(0).(*JournalHeader)
	return header, args.Error(1)
}

func (m *MockJournalService) CreateLines(ctx context.Context, lines []mapping.JournalLine) error {
	args := m.Called(ctx, lines)
	return args.Error(0)
}

type MockLineMapper struct {
	mock.Mock
}

func (m *MockLineMapper) MapLines(ctx context.Context, companyID, journalBatchNumber string, format *dimension.Format, lines []relion.LedgerLine) ([]mapping.JournalLine, error) {
	args := m.Called(ctx, companyID, journalBatchNumber, format, lines)
	mapped, _ := args.Get(0).([]mapping.JournalLine)
	return mapped, args.Error(1)
}

// =============================================================================
// Helpers
// =============================================================================

func newCompanyRun(journals JournalService, mapper LineMapper) *companyRun {
	return &companyRun{
		journals: journals,
		mapper:   mapper,
		logger:   logger.New("test", io.Discard),
	}
}

func workflowFormat() *dimension.Format {
	return &dimension.Format{Delimiter: "-", Segments: []string{"MainAccount"}}
}

func sampleLines(n int) []relion.LedgerLine {
	lines := make([]relion.LedgerLine, n)
	for i := range lines {
		lines[i] = relion.LedgerLine{EntryNo: i + 1, CompetenceUnit: "DE01"}
	}
	return lines
}

// =============================================================================
// Tests
// =============================================================================

func TestCompanyRunCompletes(t *testing.T) {
	journals := &MockJournalService{}
	mapper := &MockLineMapper{}

	mapped := []mapping.JournalLine{{CompanyID: "DE01", JournalBatchNumber: "JB-1"}}
	journals.On("CreateHeader", mock.Anything, "DE01").
		Return(&JournalHeader{BatchNumber: "JB-1"}, nil)
	mapper.On("MapLines", mock.Anything, "DE01", "JB-1", mock.Anything, mock.Anything).
		Return(mapped, nil)
	journals.On("CreateLines", mock.Anything, mapped).Return(nil)

	result := newCompanyRun(journals, mapper).run(context.Background(), "DE01", workflowFormat(), sampleLines(2))

	assert.Equal(t, StateCompleted, result.State)
	assert.False(t, result.Failed())
	assert.Equal(t, "JB-1", result.BatchNumber)
	assert.Equal(t, 2, result.LinesIn)
	assert.Equal(t, 1, result.LinesMapped)
	assert.NoError(t, result.Err)
	journals.AssertExpectations(t)
}

func TestCompanyRunHeaderFailure(t *testing.T) {
	journals := &MockJournalService{}
	mapper := &MockLineMapper{}

	journals.On("CreateHeader", mock.Anything, "DE01").
		Return(nil, errors.New("503 from d365"))

	result := newCompanyRun(journals, mapper).run(context.Background(), "DE01", workflowFormat(), sampleLines(1))

	assert.True(t, result.Failed())
	assert.Equal(t, apperrors.ErrCodeUpstream, apperrors.CodeOf(result.Err))
	mapper.AssertNotCalled(t, "MapLines", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompanyRunMissingBatchNumber(t *testing.T) {
	journals := &MockJournalService{}
	mapper := &MockLineMapper{}

	// The header call "succeeds" but returns no batch number. This must be a
	// distinct failure, not a nil-pointer crash or a silent pass.
	journals.On("CreateHeader", mock.Anything, "DE01").
		Return(&JournalHeader{}, nil)

	result := newCompanyRun(journals, mapper).run(context.Background(), "DE01", workflowFormat(), sampleLines(1))

	assert.True(t, result.Failed())
	assert.Equal(t, apperrors.ErrCodeMissingBatchNumber, apperrors.CodeOf(result.Err))
	mapper.AssertNotCalled(t, "MapLines", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompanyRunZeroLinesStillCreatesHeader(t *testing.T) {
	journals := &MockJournalService{}
	mapper := &MockLineMapper{}

	journals.On("CreateHeader", mock.Anything, "DE01").
		Return(&JournalHeader{BatchNumber: "JB-1"}, nil)

	result := newCompanyRun(journals, mapper).run(context.Background(), "DE01", workflowFormat(), nil)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "JB-1", result.BatchNumber)
	assert.Zero(t, result.LinesMapped)
	journals.AssertExpectations(t)
	journals.AssertNotCalled(t, "CreateLines", mock.Anything, mock.Anything)
}

func TestCompanyRunAllLinesSkipped(t *testing.T) {
	journals := &MockJournalService{}
	mapper := &MockLineMapper{}

	journals.On("CreateHeader", mock.Anything, "DE01").
		Return(&JournalHeader{BatchNumber: "JB-1"}, nil)
	mapper.On("MapLines", mock.Anything, "DE01", "JB-1", mock.Anything, mock.Anything).
		Return([]mapping.JournalLine{}, nil)

	result := newCompanyRun(journals, mapper).run(context.Background(), "DE01", workflowFormat(), sampleLines(3))

	// Every line skipped is still a completed run with an empty journal.
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 3, result.LinesIn)
	assert.Zero(t, result.LinesMapped)
	journals.AssertNotCalled(t, "CreateLines", mock.Anything, mock.Anything)
}

func TestCompanyRunMappingFailure(t *testing.T) {
	journals := &MockJournalService{}
	mapper := &MockLineMapper{}

	journals.On("CreateHeader", mock.Anything, "DE01").
		Return(&JournalHeader{BatchNumber: "JB-1"}, nil)
	mapper.On("MapLines", mock.Anything, "DE01", "JB-1", mock.Anything, mock.Anything).
		Return(nil, apperrors.MappingFailed("account mapping lookup failed for entry 1", errors.New("timeout")))

	result := newCompanyRun(journals, mapper).run(context.Background(), "DE01", workflowFormat(), sampleLines(1))

	assert.True(t, result.Failed())
	assert.Equal(t, apperrors.ErrCodeMappingFailed, apperrors.CodeOf(result.Err))
	journals.AssertNotCalled(t, "CreateLines", mock.Anything, mock.Anything)
}

func TestCompanyRunLineCreationFailure(t *testing.T) {
	journals := &MockJournalService{}
	mapper := &MockLineMapper{}

	mapped := []mapping.JournalLine{{CompanyID: "DE01"}}
	journals.On("CreateHeader", mock.Anything, "DE01").
		Return(&JournalHeader{BatchNumber: "JB-1"}, nil)
	mapper.On("MapLines", mock.Anything, "DE01", "JB-1", mock.Anything, mock.Anything).
		Return(mapped, nil)
	journals.On("CreateLines", mock.Anything, mapped).
		Return(errors.New("400 from d365"))

	result := newCompanyRun(journals, mapper).run(context.Background(), "DE01", workflowFormat(), sampleLines(1))

	assert.True(t, result.Failed())
	assert.Equal(t, apperrors.ErrCodeUpstream, apperrors.CodeOf(result.Err))
	require.Error(t, result.Err)
}
