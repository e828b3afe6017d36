/*
handlers.go - HTTP handlers for the run ledger and ledger summaries

PURPOSE:
  Lets reporting clients see whether the last consolidation succeeded,
  which files it read and which client identities it could not resolve.
  The only write is POST /api/runs, which triggers a run.

ENDPOINTS:
  GET  /api/health                 Liveness
  GET  /api/runs?limit=N           Runs, newest first
  GET  /api/runs/latest            Most recent run
  GET  /api/runs/{id}              One run
  GET  /api/runs/{id}/unmatched    Unresolved identities written by a run
  GET  /api/ledger/periods         Row count, quantity and amount per period
  POST /api/runs                   Run the pipeline now (synchronous)

ERROR HANDLING:
  - 400: Malformed id or limit
  - 404: Unknown run
  - 409: A run is already in progress
  - 500: Store errors; a failed pipeline run also reports 500 with the
         ledger entry in the body
  - 503: No runner configured (read-only server)

SEE ALSO:
  - dto.go: Response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the read side the handlers need.
type Store interface {
	ListRuns(ctx context.Context, limit int) ([]core.RunRecord, error)
	LatestRun(ctx context.Context) (*core.RunRecord, error)
	GetRun(ctx context.Context, runID int64) (*core.RunRecord, error)
	ListUnmatched(ctx context.Context, runID int64) ([]core.UnmatchedClient, error)
	LedgerTotals(ctx context.Context) ([]core.PeriodTotals, error)
}

// Handler holds the HTTP handlers' dependencies.
type Handler struct {
	Store     Store
	Scheduler *Scheduler // nil disables POST /api/runs
	Logger    *zap.Logger
}

func NewHandler(store Store, scheduler *Scheduler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: store, Scheduler: scheduler, Logger: logger}
}

// =============================================================================
// ENDPOINTS
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		h.internal(w, "failed to list runs", err)
		return
	}
	out := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.LatestRun(r.Context())
	if err != nil {
		h.internal(w, "failed to load latest run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no runs recorded", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		h.internal(w, "failed to load run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

func (h *Handler) ListUnmatched(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		h.internal(w, "failed to load run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found", nil)
		return
	}

	unmatched, err := h.Store.ListUnmatched(r.Context(), id)
	if err != nil {
		h.internal(w, "failed to list unmatched clients", err)
		return
	}
	writeJSON(w, http.StatusOK, UnmatchedResponse{RunID: id, Unmatched: toUnmatchedDTOs(unmatched)})
}

func (h *Handler) LedgerPeriods(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Store.LedgerTotals(r.Context())
	if err != nil {
		h.internal(w, "failed to summarize ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodTotalsDTOs(totals))
}

// TriggerRun runs the pipeline and answers with the resulting ledger entry.
// The run outlives the request: a client that disconnects does not abort it.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "runs are not enabled on this server", nil)
		return
	}

	run, err := h.Scheduler.RunNow(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, core.ErrRunFailed):
		h.Logger.Warn("triggered run failed", zap.Int64("run_id", run.RunID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, toRunDTO(run))
	case err != nil:
		h.internal(w, "failed to run pipeline", err)
	default:
		writeJSON(w, http.StatusCreated, toRunDTO(run))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func runID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid run id", err)
		return 0, false
	}
	return id, true
}

func (h *Handler) internal(w http.ResponseWriter, message string, err error) {
	h.Logger.Error(message, zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
