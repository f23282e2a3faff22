package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appsync "github.com/eshaffer321/marketplace-order-sync/internal/application/sync"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/lock"
)

// SyncStatus represents the current state of a sync job.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
	StatusCancelled SyncStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress updates
	// before being considered stale.
	DefaultJobStaleThreshold = 30 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before being
	// forcefully marked as failed.
	DefaultJobMaxDuration = 2 * time.Hour
)

var (
	// ErrSyncInProgress rejects a second concurrent sync for the same principal
	ErrSyncInProgress = errors.New("sync already in progress for principal")

	// ErrInvalidPrincipal rejects requests without a principal id
	ErrInvalidPrincipal = appsync.ErrInvalidPrincipal

	// ErrJobNotFound is returned for unknown job ids
	ErrJobNotFound = errors.New("sync job not found")
)

// SyncRequest holds parameters for starting a sync.
type SyncRequest struct {
	PrincipalID string
	WindowDays  int
	PageSize    int
}

// SyncProgress holds real-time progress information.
type SyncProgress struct {
	CurrentPhase    string // "pending", "fetching_orders", "completed", "failed", "cancelled"
	Pages           int
	OrdersProcessed int
	LinesProcessed  int
	LastUpdate      time.Time
}

// SyncJob represents a running or completed sync job.
type SyncJob struct {
	ID          string
	PrincipalID string
	Status      SyncStatus
	Request     SyncRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    SyncProgress
	Result      *appsync.Result
	Error       error
	cancelFunc  context.CancelFunc
	release     lock.Release
}

// StaleReason explains why an unfinished job looks stuck at now: it ran longer
// than maxDuration, or reported no progress within staleThreshold. It returns
// "" for healthy and finished jobs.
func (j *SyncJob) StaleReason(now time.Time, staleThreshold, maxDuration time.Duration) string {
	if j.Status != StatusRunning && j.Status != StatusPending {
		return ""
	}
	if elapsed := now.Sub(j.StartedAt); elapsed > maxDuration {
		return fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, elapsed.Round(time.Second))
	}
	if idle := now.Sub(j.Progress.LastUpdate); idle > staleThreshold {
		return fmt.Sprintf("no progress update for %v (threshold: %v)", idle.Round(time.Second), staleThreshold)
	}
	return ""
}

// IsStale reports whether StaleReason is non-empty.
func (j *SyncJob) IsStale(now time.Time, staleThreshold, maxDuration time.Duration) bool {
	return j.StaleReason(now, staleThreshold, maxDuration) != ""
}

// Runner executes one sync. *appsync.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error)
}

// Config tunes the service
type Config struct {
	DefaultWindowDays int
	DefaultPageSize   int // 0 leaves the page size to the marketplace client
}

// SyncService manages sync operations.
type SyncService struct {
	runner        Runner
	locker        lock.Locker
	logger        *slog.Logger
	defaultWindow int
	defaultPage   int

	// Job management
	jobs      map[string]*SyncJob
	jobsMutex sync.RWMutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewSyncService creates a new sync service.
func NewSyncService(runner Runner, locker lock.Locker, logger *slog.Logger, cfg Config) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = appsync.DefaultWindowDays
	}
	return &SyncService{
		runner:        runner,
		locker:        locker,
		logger:        logger,
		defaultWindow: cfg.DefaultWindowDays,
		defaultPage:   cfg.DefaultPageSize,
		jobs:          make(map[string]*SyncJob),
	}
}

func syncLockKey(principalID string) string {
	return "sync:" + principalID
}

// lockPrincipal takes the per-principal sync lock without waiting
func (s *SyncService) lockPrincipal(ctx context.Context, principalID string) (lock.Release, error) {
	release, ok, err := s.locker.TryAcquire(ctx, syncLockKey(principalID))
	if err != nil {
		return nil, fmt.Errorf("lock sync for %s: %w", principalID, err)
	}
	if !ok {
		return nil, fmt.Errorf("principal %s: %w", principalID, ErrSyncInProgress)
	}
	return release, nil
}

func (s *SyncService) options(req SyncRequest) appsync.Options {
	window := req.WindowDays
	if window <= 0 {
		window = s.defaultWindow
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.defaultPage
	}
	return appsync.Options{
		PrincipalID: req.PrincipalID,
		WindowDays:  window,
		PageSize:    pageSize,
	}
}

// RunSync runs a sync in the caller's goroutine and returns its result.
func (s *SyncService) RunSync(ctx context.Context, req SyncRequest) (*appsync.Result, error) {
	if req.PrincipalID == "" {
		return nil, ErrInvalidPrincipal
	}

	release, err := s.lockPrincipal(ctx, req.PrincipalID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.runner.Run(ctx, s.options(req))
}

// StartSync starts a new sync job asynchronously.
// Note: The passed context is NOT used as the parent for the background job.
// Background sync jobs use context.Background() to avoid being cancelled when
// the HTTP request completes. Use CancelSync() to cancel a running job.
func (s *SyncService) StartSync(ctx context.Context, req SyncRequest) (string, error) {
	if req.PrincipalID == "" {
		return "", ErrInvalidPrincipal
	}

	release, err := s.lockPrincipal(ctx, req.PrincipalID)
	if err != nil {
		return "", err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	job := &SyncJob{
		ID:          uuid.NewString(),
		PrincipalID: req.PrincipalID,
		Status:      StatusPending,
		Request:     req,
		StartedAt:   now,
		cancelFunc:  cancel,
		release:     release,
		Progress:    SyncProgress{CurrentPhase: "pending", LastUpdate: now},
	}

	s.jobsMutex.Lock()
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	go s.runSyncJob(jobCtx, job)

	s.logger.Info("sync job started",
		"job_id", job.ID,
		"principal_id", req.PrincipalID,
		"window_days", req.WindowDays,
	)

	return job.ID, nil
}

// GetSyncJob retrieves a snapshot of a sync job by ID.
func (s *SyncService) GetSyncJob(jobID string) (*SyncJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	snapshot := *job
	return &snapshot, nil
}

// ListActiveSyncJobs returns all running or pending jobs, newest first.
func (s *SyncService) ListActiveSyncJobs() []*SyncJob {
	return s.listJobs(func(job *SyncJob) bool {
		return job.Status == StatusPending || job.Status == StatusRunning
	})
}

// ListAllSyncJobs returns all jobs, newest first.
func (s *SyncService) ListAllSyncJobs() []*SyncJob {
	return s.listJobs(func(*SyncJob) bool { return true })
}

func (s *SyncService) listJobs(keep func(*SyncJob) bool) []*SyncJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*SyncJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if keep(job) {
			snapshot := *job
			jobs = append(jobs, &snapshot)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	return jobs
}

// CancelSync cancels a running sync job. The run stops before its next page.
func (s *SyncService) CancelSync(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("sync job cancelled", "job_id", jobID, "principal_id", job.PrincipalID)
	return nil
}

// runSyncJob executes the sync job in a background goroutine.
func (s *SyncService) runSyncJob(ctx context.Context, job *SyncJob) {
	defer job.release()

	s.updateJobStatus(job.ID, StatusRunning, "fetching_orders")

	opts := s.options(job.Request)
	opts.ProgressCallback = func(p appsync.Progress) {
		s.updateJobProgress(job.ID, p)
	}

	result, err := s.runner.Run(ctx, opts)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// Already marked as cancelled in CancelSync
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, result)
}

// updateJobStatus updates a job's status and phase unless it already finished.
func (s *SyncService) updateJobStatus(jobID string, status SyncStatus, phase string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.Status == StatusPending {
		job.Status = status
		job.Progress.CurrentPhase = phase
		job.Progress.LastUpdate = time.Now()
	}
}

// updateJobProgress updates job progress from orchestrator callback.
func (s *SyncService) updateJobProgress(jobID string, p appsync.Progress) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.Status == StatusRunning {
		job.Progress.Pages = p.Pages
		job.Progress.OrdersProcessed = p.OrdersProcessed
		job.Progress.LinesProcessed = p.LinesProcessed
		job.Progress.LastUpdate = time.Now()
	}
}

// completeJob marks a job as completed with results.
func (s *SyncService) completeJob(jobID string, result *appsync.Result) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != StatusRunning {
		return
	}

	now := time.Now()
	job.Status = StatusCompleted
	job.CompletedAt = &now
	job.Result = result
	job.Progress.CurrentPhase = "completed"
	job.Progress.Pages = result.Pages
	job.Progress.OrdersProcessed = result.OrdersProcessed
	job.Progress.LinesProcessed = result.LinesProcessed
	job.Progress.LastUpdate = now

	s.logger.Info("sync job completed",
		"job_id", jobID,
		"principal_id", job.PrincipalID,
		"orders_processed", result.OrdersProcessed,
		"lines_processed", result.LinesProcessed,
	)
}

// failJob marks a job as failed with an error.
func (s *SyncService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != StatusRunning {
		return
	}

	now := time.Now()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Error = err
	job.Progress.CurrentPhase = "failed"
	job.Progress.LastUpdate = now

	s.logger.Error("sync job failed", "job_id", jobID, "principal_id", job.PrincipalID, "error", err)
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *SyncService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old sync jobs", "removed", removed)
	}

	return removed
}

// MarkStaleJobsAsFailed finds jobs that appear to be stuck and marks them as failed.
// A job is considered stale if it has been running longer than maxDuration,
// or its Progress.LastUpdate is older than staleThreshold.
func (s *SyncService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		reason := job.StaleReason(now, staleThreshold, maxDuration)
		if reason == "" {
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}

		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Errorf("job marked as stale: %s", reason)
		job.Progress.CurrentPhase = "failed"
		job.Progress.LastUpdate = now

		// The principal stays locked until runSyncJob returns

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"principal_id", job.PrincipalID,
			"reason", reason,
			"started_at", job.StartedAt,
		)

		marked++
	}

	return marked
}

// StartBackgroundCleanup starts a goroutine that periodically marks stale
// jobs as failed and drops finished jobs older than a day.
// Call StopBackgroundCleanup to stop it.
func (s *SyncService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started",
			"check_interval", checkInterval,
			"stale_threshold", DefaultJobStaleThreshold,
			"max_duration", DefaultJobMaxDuration,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				if n := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); n > 0 {
					s.logger.Info("marked stale jobs as failed", "count", n)
				}
				s.CleanupOldJobs(24 * time.Hour)
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine.
// This method blocks until the cleanup goroutine has fully stopped.
func (s *SyncService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}

	close(s.cleanupStop)
	<-s.cleanupDone
}
