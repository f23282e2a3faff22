package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/marketplace-order-sync/internal/api/dto"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/service"
	appsync "github.com/eshaffer321/marketplace-order-sync/internal/application/sync"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	*Base
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		Base:        &Base{},
		syncService: syncService,
	}
}

func (h *SyncHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (service.SyncRequest, bool) {
	var req dto.SyncOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return service.SyncRequest{}, false
	}
	if req.PrincipalID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("principal_id is required"))
		return service.SyncRequest{}, false
	}
	if req.WindowDays < 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("window_days must not be negative"))
		return service.SyncRequest{}, false
	}
	return service.SyncRequest{
		PrincipalID: req.PrincipalID,
		WindowDays:  req.WindowDays,
		PageSize:    req.PageSize,
	}, true
}

// SyncOrders handles POST /api/sync/orders - runs a sync and waits for it.
func (h *SyncHandler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.syncService.RunSync(r.Context(), req)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncOrdersResponse(result))
}

// StartSync handles POST /api/sync - starts a background sync job.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	jobID, err := h.syncService.StartSync(r.Context(), req)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartSyncResponse{
		JobID:       jobID,
		PrincipalID: req.PrincipalID,
		Status:      string(service.StatusPending),
	})
}

// GetSyncStatus handles GET /api/sync/{jobId} - gets sync job status.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.syncService.GetSyncJob(jobID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncJobResponse(job, time.Now()))
}

// ListActiveSyncs handles GET /api/sync/active - lists active sync jobs.
func (h *SyncHandler) ListActiveSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListActiveSyncJobs()

	response := dto.ActiveSyncsResponse{
		Jobs:  make([]dto.SyncJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toSyncJobResponse(job, time.Now()))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// ListAllSyncs handles GET /api/sync - lists all sync jobs.
func (h *SyncHandler) ListAllSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListAllSyncJobs()

	response := dto.AllSyncsResponse{
		Jobs:  make([]dto.SyncJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toSyncJobResponse(job, time.Now()))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// CancelSync handles DELETE /api/sync/{jobId} - cancels a sync job.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.syncService.CancelSync(jobID); err != nil {
		status, apiErr := ErrorResponse(err)
		if status == http.StatusInternalServerError {
			status, apiErr = http.StatusConflict, dto.NewAPIError(dto.ErrCodeCancelFailed, err.Error())
		}
		h.WriteError(w, status, apiErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Sync job cancelled successfully",
	})
}

func toSyncOrdersResponse(result *appsync.Result) dto.SyncOrdersResponse {
	return dto.SyncOrdersResponse{
		OrdersProcessed: result.OrdersProcessed,
		LinesProcessed:  result.LinesProcessed,
		OrdersCreated:   result.OrdersCreated,
		OrdersUpdated:   result.OrdersUpdated,
		LinesMatched:    result.LinesMatched,
		Pages:           result.Pages,
	}
}

// toSyncJobResponse converts a service model to an API response. Staleness
// uses the same thresholds as the background cleanup.
func toSyncJobResponse(job *service.SyncJob, now time.Time) dto.SyncJobResponse {
	response := dto.SyncJobResponse{
		JobID:       job.ID,
		PrincipalID: job.PrincipalID,
		Status:      string(job.Status),
		Stale:       job.IsStale(now, service.DefaultJobStaleThreshold, service.DefaultJobMaxDuration),
		WindowDays:  job.Request.WindowDays,
		StartedAt:   job.StartedAt.Format(time.RFC3339),
		Progress: dto.SyncProgressResponse{
			CurrentPhase:    job.Progress.CurrentPhase,
			Pages:           job.Progress.Pages,
			OrdersProcessed: job.Progress.OrdersProcessed,
			LinesProcessed:  job.Progress.LinesProcessed,
			LastUpdate:      job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Result != nil {
		result := toSyncOrdersResponse(job.Result)
		response.Result = &result
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
