package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"certguard/internal/ledger"
	"certguard/pkg/platform/httputil"
)

// Ledger is the read side of the verification aggregator.
type Ledger interface {
	Stats() ledger.Stats
	Entries() []ledger.Entry
	Capacity() int
}

// Handler serves aggregate stats and the recent-verifications ledger.
type Handler struct {
	ledger Ledger
}

func New(l Ledger) *Handler {
	return &Handler{ledger: l}
}

// Register mounts the ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/stats", h.HandleStats)
	r.Get("/v1/ledger", h.HandleLedger)
}

// HandleStats handles GET /v1/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.ledger.Stats())
}

type ledgerResponse struct {
	Entries  []ledger.Entry `json:"entries"`
	Capacity int            `json:"capacity"`
}

// HandleLedger handles GET /v1/ledger, newest entry first.
func (h *Handler) HandleLedger(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, ledgerResponse{
		Entries:  h.ledger.Entries(),
		Capacity: h.ledger.Capacity(),
	})
}
