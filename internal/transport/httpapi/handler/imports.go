package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nordicfin/relion-bridge/internal/relion"
	apperrors "github.com/nordicfin/relion-bridge/internal/shared/errors"
	"github.com/nordicfin/relion-bridge/internal/workflow"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

// BusinessEventID is the only inbound business event this bridge reacts to.
const BusinessEventID = "RelionJournalImportRequested"

// Importer runs import batches and serves recorded runs
type Importer interface {
	ImportPayload(ctx context.Context, trigger, sourceRef string, raw []byte) (*workflow.BatchResult, error)
	ImportLines(ctx context.Context, trigger, sourceRef string, lines []relion.LedgerLine) (*workflow.BatchResult, error)
	GetRun(ctx context.Context, id uuid.UUID) (*workflow.Run, error)
}

// PayloadStore fetches raw export payloads by container and blob key
type PayloadStore interface {
	Fetch(ctx context.Context, container, key string) ([]byte, error)
}

// LineSource fetches ledger lines from the Relion API
type LineSource interface {
	FetchLines(ctx context.Context, legalEntity string, since time.Time) ([]relion.LedgerLine, error)
}

// ImportHandler handles the file and business-event import triggers
type ImportHandler struct {
	importer Importer
	payloads PayloadStore
	lines    LineSource
	logger   *logger.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer Importer, payloads PayloadStore, lines LineSource, log *logger.Logger) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		payloads: payloads,
		lines:    lines,
		logger:   log.WithField("handler", "imports"),
	}
}

// fileImportRequest is the blob-arrival notification payload. Container is
// optional; when empty the store falls back to its configured bucket.
type fileImportRequest struct {
	Container string `json:"container"`
	BlobName  string `json:"blobName"`
}

// businessEventRequest is the inbound business event payload
type businessEventRequest struct {
	BusinessEventID string    `json:"BusinessEventId"`
	LegalEntity     string    `json:"LegalEntity"`
	ImportSince     time.Time `json:"ImportSince"`
}

// importResponse summarizes a finished import run
type importResponse struct {
	RunID           string `json:"run_id"`
	Summary         string `json:"summary"`
	Companies       int    `json:"companies"`
	CompaniesFailed int    `json:"companies_failed"`
	LinesCreated    int    `json:"lines_created"`
}

// ImportFile handles POST /api/v1/imports/file
// Triggered when a Relion export payload lands in the blob store.
func (h *ImportHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	var req fileImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BlobName == "" {
		respondError(w, http.StatusBadRequest, "blobName is required")
		return
	}

	raw, err := h.payloads.Fetch(r.Context(), req.Container, req.BlobName)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch payload", "container", req.Container, "blob", req.BlobName)
		respondError(w, http.StatusBadGateway, "failed to fetch payload")
		return
	}

	sourceRef := req.BlobName
	if req.Container != "" {
		sourceRef = req.Container + "/" + req.BlobName
	}

	result, err := h.importer.ImportPayload(r.Context(), workflow.TriggerFile, sourceRef, raw)
	if err != nil {
		h.logger.WithError(err).Error("file import failed", "blob", req.BlobName)
		respondError(w, http.StatusInternalServerError, "import failed")
		return
	}

	respondJSON(w, http.StatusOK, toImportResponse(result))
}

// ImportEvent handles POST /api/v1/imports/event
// Triggered by the inbound business event; any other event id is rejected.
func (h *ImportHandler) ImportEvent(w http.ResponseWriter, r *http.Request) {
	var req businessEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessEventID != BusinessEventID {
		respondError(w, http.StatusBadRequest, "unsupported business event id")
		return
	}
	if req.LegalEntity == "" {
		respondError(w, http.StatusBadRequest, "LegalEntity is required")
		return
	}

	lines, err := h.lines.FetchLines(r.Context(), req.LegalEntity, req.ImportSince)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch ledger lines", "legal_entity", req.LegalEntity)
		respondError(w, http.StatusBadGateway, "failed to fetch ledger lines")
		return
	}

	result, err := h.importer.ImportLines(r.Context(), workflow.TriggerEvent, req.LegalEntity, lines)
	if err != nil {
		h.logger.WithError(err).Error("event import failed", "legal_entity", req.LegalEntity)
		respondError(w, http.StatusInternalServerError, "import failed")
		return
	}

	respondJSON(w, http.StatusOK, toImportResponse(result))
}

// GetRun handles GET /api/v1/imports/runs/{id}
func (h *ImportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.importer.GetRun(r.Context(), id)
	if err != nil {
		if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Code == apperrors.ErrCodeNotFound {
			respondError(w, http.StatusNotFound, "import run not found")
			return
		}
		h.logger.WithError(err).Error("failed to load import run", "run_id", id)
		respondError(w, http.StatusInternalServerError, "failed to load import run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func toImportResponse(result *workflow.BatchResult) importResponse {
	return importResponse{
		RunID:           result.RunID.String(),
		Summary:         result.Summary(),
		Companies:       len(result.Companies),
		CompaniesFailed: result.FailedCount(),
		LinesCreated:    result.LinesCreated(),
	}
}
