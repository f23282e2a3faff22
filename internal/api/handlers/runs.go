package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/marketplace-order-sync/internal/api/dto"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// RunsHandler handles sync run-related HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns list of sync runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", dto.DefaultSyncRunListParams().Limit)

	runs, err := h.repo.ListSyncRuns(r.Context(), limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.SyncRunListResponse{
		Runs:  make([]dto.SyncRunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toSyncRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single sync run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return
	}

	run, err := h.repo.GetSyncRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncRunResponse(*run))
}

// toSyncRunResponse converts a storage SyncRun to an API response.
func toSyncRunResponse(run storage.SyncRun) dto.SyncRunResponse {
	response := dto.SyncRunResponse{
		ID:              run.ID,
		PrincipalID:     run.PrincipalID,
		StartedAt:       run.StartedAt.UTC().Format(time.RFC3339),
		WindowDays:      run.WindowDays,
		Pages:           run.Pages,
		OrdersProcessed: run.OrdersProcessed,
		LinesProcessed:  run.LinesProcessed,
		OrdersCreated:   run.OrdersCreated,
		LinesMatched:    run.LinesMatched,
		Status:          run.Status,
		ErrorMessage:    run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.UTC().Format(time.RFC3339)
		response.CompletedAt = &completed
	}
	return response
}
