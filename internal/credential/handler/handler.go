package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"certguard/internal/credential/models"
	"certguard/internal/ledger"
	dErrors "certguard/pkg/domain-errors"
	"certguard/pkg/platform/httputil"
	"certguard/pkg/platform/sentinel"
	"certguard/pkg/requestcontext"
)

// Catalogue is the record store as seen by the admin endpoints.
type Catalogue interface {
	Search(query string) []models.CredentialRecord
	Stats() models.CatalogueStats
	Len() int
	FindByCertificateID(ctx context.Context, certificateID string) (models.CredentialRecord, error)
	Add(ctx context.Context, rec models.CredentialRecord) (models.CredentialRecord, error)
	Remove(ctx context.Context, id int) error
}

// Ledger supplies the verification history included in exports.
type Ledger interface {
	Stats() ledger.Stats
	Entries() []ledger.Entry
}

// Handler serves the record catalogue and the JSON export.
type Handler struct {
	records Catalogue
	ledger  Ledger
	version string
	logger  *slog.Logger
}

func New(records Catalogue, ledger Ledger, version string, logger *slog.Logger) *Handler {
	return &Handler{
		records: records,
		ledger:  ledger,
		version: version,
		logger:  logger,
	}
}

// Register mounts the catalogue and export endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/records", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
		r.Get("/stats", h.HandleStats)
		// GET reads {id} as a certificate id, DELETE as a store id.
		r.Get("/{id}", h.HandleDetails)
		r.Delete("/{id}", h.HandleRemove)
	})
	r.Get("/v1/export", h.HandleExport)
}

// HandleList handles GET /v1/records, filtered by the optional q parameter.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records := h.records.Search(r.URL.Query().Get("q"))
	httputil.WriteJSON(w, http.StatusOK, listResponse{Records: records, Count: len(records)})
}

// HandleStats handles GET /v1/records/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.records.Stats())
}

// HandleDetails handles GET /v1/records/{certificateID}.
func (h *Handler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certificateID := chi.URLParam(r, "id")

	rec, err := h.records.FindByCertificateID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "certificate not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load certificate",
			"request_id", requestcontext.RequestID(ctx),
			"certificate_id", certificateID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDetailsResponse(rec))
}

// HandleAdd handles POST /v1/records.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddRecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.records.Add(ctx, req.toRecord())
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConflict, "certificate identifier already issued"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to add certificate",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add certificate"))
		return
	}

	h.logger.InfoContext(ctx, "certificate added",
		"request_id", requestID,
		"record_id", rec.ID,
		"certificate_id", rec.CertificateID,
	)
	httputil.WriteJSON(w, http.StatusCreated, toDetailsResponse(rec))
}

// HandleRemove handles DELETE /v1/records/{id}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "record id must be a positive integer"))
		return
	}

	if err := h.records.Remove(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "record not found"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove record"))
		return
	}

	h.logger.InfoContext(ctx, "certificate removed",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", id,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleExport handles GET /v1/export.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	now := requestcontext.Now(r.Context()).UTC()
	w.Header().Set("Content-Disposition", `attachment; filename="certguard-export-`+now.Format("20060102T150405Z")+`.json"`)
	httputil.WriteJSON(w, http.StatusOK, exportResponse{
		Records:    h.records.Search(""),
		Stats:      h.ledger.Stats(),
		Ledger:     h.ledger.Entries(),
		ExportedAt: now,
		SystemInfo: systemInfo{
			Version:           h.version,
			TotalCertificates: h.records.Len(),
		},
	})
}
