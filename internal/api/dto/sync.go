package dto

// SyncOrdersResponse is returned by the synchronous sync endpoint.
type SyncOrdersResponse struct {
	OrdersProcessed int `json:"orders_processed"`
	LinesProcessed  int `json:"lines_processed"`
	OrdersCreated   int `json:"orders_created"`
	OrdersUpdated   int `json:"orders_updated"`
	LinesMatched    int `json:"lines_matched"`
	Pages           int `json:"pages"`
}

// StartSyncResponse is returned when a sync job is started.
type StartSyncResponse struct {
	JobID       string `json:"job_id"`
	PrincipalID string `json:"principal_id"`
	Status      string `json:"status"`
}

// SyncJobResponse represents a sync job's status.
type SyncJobResponse struct {
	JobID       string               `json:"job_id"`
	PrincipalID string               `json:"principal_id"`
	Status      string               `json:"status"`
	Stale       bool                 `json:"stale"` // unfinished and past the stale thresholds
	WindowDays  int                  `json:"window_days"`
	StartedAt   string               `json:"started_at"`
	CompletedAt *string              `json:"completed_at,omitempty"`
	Progress    SyncProgressResponse `json:"progress"`
	Result      *SyncOrdersResponse  `json:"result,omitempty"`
	Error       *string              `json:"error,omitempty"`
}

// SyncProgressResponse represents real-time progress.
type SyncProgressResponse struct {
	CurrentPhase    string `json:"current_phase"`
	Pages           int    `json:"pages"`
	OrdersProcessed int    `json:"orders_processed"`
	LinesProcessed  int    `json:"lines_processed"`
	LastUpdate      string `json:"last_update"`
}

// ActiveSyncsResponse lists active sync jobs.
type ActiveSyncsResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}

// AllSyncsResponse lists all sync jobs (including completed).
type AllSyncsResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}
