package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/eshaffer321/marketplace-order-sync/internal/application/sync"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/lock"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/logging"
)

// fakeRunner records calls and can block until released or cancelled
type fakeRunner struct {
	mu      sync.Mutex
	calls   []appsync.Options
	block   chan struct{}
	started chan string
	result  *appsync.Result
	err     error

	// ignoreCancel keeps the run going after its context is cancelled
	ignoreCancel bool
}

func (f *fakeRunner) Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- opts.PrincipalID
	}
	if opts.ProgressCallback != nil {
		opts.ProgressCallback(appsync.Progress{Pages: 1, OrdersProcessed: 2, LinesProcessed: 3})
	}
	if f.block != nil {
		if f.ignoreCancel {
			<-f.block
		} else {
			select {
			case <-f.block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRunner) Calls() []appsync.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appsync.Options(nil), f.calls...)
}

func okResult() *appsync.Result {
	return &appsync.Result{Pages: 1, OrdersProcessed: 2, LinesProcessed: 3}
}

func waitForStatus(t *testing.T, svc *SyncService, jobID string, want SyncStatus) *SyncJob {
	t.Helper()
	var job *SyncJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.GetSyncJob(jobID)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestSyncService_RunSync(t *testing.T) {
	runner := &fakeRunner{result: okResult()}
	svc := NewSyncService(runner, lock.NewMemory(), testLogger(), Config{DefaultWindowDays: 45})

	result, err := svc.RunSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.OrdersProcessed)
	assert.Equal(t, 3, result.LinesProcessed)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "seller-1", calls[0].PrincipalID)
	assert.Equal(t, 45, calls[0].WindowDays, "default window applied")
}

func TestSyncService_RunSync_MissingPrincipal(t *testing.T) {
	svc := NewSyncService(&fakeRunner{}, lock.NewMemory(), testLogger(), Config{})

	_, err := svc.RunSync(context.Background(), SyncRequest{})
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	_, err = svc.StartSync(context.Background(), SyncRequest{})
	assert.ErrorIs(t, err, ErrInvalidPrincipal)
}

func TestSyncService_RunSync_RejectsConcurrentRunForSamePrincipal(t *testing.T) {
	runner := &fakeRunner{result: okResult(), block: make(chan struct{}), started: make(chan string, 4)}
	svc := NewSyncService(runner, lock.NewMemory(), testLogger(), Config{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
		done <- err
	}()
	<-runner.started

	_, err := svc.RunSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
	assert.ErrorIs(t, err, ErrSyncInProgress)

	_, err = svc.StartSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
	assert.ErrorIs(t, err, ErrSyncInProgress, "async jobs share the per-principal lock")

	close(runner.block)
	require.NoError(t, <-done)

	_, err = svc.RunSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
	assert.NoError(t, err, "lock released after the first run")
}

func TestSyncService_DifferentPrincipalsRunConcurrently(t *testing.T) {
	runner := &fakeRunner{result: okResult(), block: make(chan struct{}), started: make(chan string, 4)}
	svc := NewSyncService(runner, lock.NewMemory(), testLogger(), Config{})

	first, err := svc.StartSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
	require.NoError(t, err)
	second, err := svc.StartSync(context.Background(), SyncRequest{PrincipalID: "seller-2"})
	require.NoError(t, err)

	<-runner.started
	<-runner.started
	assert.Len(t, svc.ListActiveSyncJobs(), 2)

	close(runner.block)
	waitForStatus(t, svc, first, StatusCompleted)
	waitForStatus(t, svc, second, StatusCompleted)
	assert.Empty(t, svc.ListActiveSyncJobs())
	assert.Len(t, svc.ListAllSyncJobs(), 2)
}

func TestSyncService_StartSync_Completes(t *testing.T) {
	runner := &fakeRunner{result: okResult()}
	svc := NewSyncService(runner, lock.NewMemory(), testLogger(), Config{})

	jobID, err := svc.StartSync(context.Background(), SyncRequest{PrincipalID: "seller-1", WindowDays: 7})
	require.NoError(t, err)

	job := waitForStatus(t, svc, jobID, StatusCompleted)
	assert.Equal(t, "seller-1", job.PrincipalID)
	require.NotNil(t, job.Result)
	assert.Equal(t, 2, job.Result.OrdersProcessed)
	assert.Equal(t, "completed", job.Progress.CurrentPhase)
	assert.Equal(t, 3, job.Progress.LinesProcessed)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, 7, runner.Calls()[0].WindowDays)
}

func TestSyncService_StartSync_Fails(t *testing.T) {
	runner := &fakeRunner{err: errors.New("upstream exploded")}
	svc := NewSyncService(runner, lock.NewMemory(), testLogger(), Config{})

	jobID, err := svc.StartSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
	require.NoError(t, err)

	job := waitForStatus(t, svc, jobID, StatusFailed)
	require.Error(t, job.Error)
	assert.Contains(t, job.Error.Error(), "upstream exploded")
	assert.Nil(t, job.Result)
}

func TestSyncService_CancelSync(t *testing.T) {
	runner := &fakeRunner{result: okResult(), block: make(chan struct{}), started: make(chan string, 1)}
	locker := lock.NewMemory()
	svc := NewSyncService(runner, locker, testLogger(), Config{})

	jobID, err := svc.StartSync(context.Background(), SyncRequest{PrincipalID: "seller-1"})
	require.NoError(t, err)
	<-runner.started

	require.NoError(t, svc.CancelSync(jobID))
	job, err := svc.GetSyncJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status)

	assert.Error(t, svc.CancelSync(jobID), "finished jobs cannot be cancelled")

	// The lock is released once the runner observes cancellation
	require.Eventually(t, func() bool {
		release, ok, err := locker.TryAcquire(context.Background(), syncLockKey("seller-1"))
		if err != nil || !ok {
			return false
		}
		release()
		return true
	}, 2*time.Second, 5*time.Millisecond)

	job, err = svc.GetSyncJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status, "cancellation is not overwritten by the runner error")
}

func TestSyncService_GetSyncJob_NotFound(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	_, err := svc.GetSyncJob("non-existent")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.ErrorIs(t, svc.CancelSync("non-existent"), ErrJobNotFound)
}

func TestSyncService_ListJobs_Empty(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	assert.Empty(t, svc.ListActiveSyncJobs())
	assert.Empty(t, svc.ListAllSyncJobs())
}

func TestSyncStatus_String(t *testing.T) {
	assert.Equal(t, "pending", string(StatusPending))
	assert.Equal(t, "running", string(StatusRunning))
	assert.Equal(t, "completed", string(StatusCompleted))
	assert.Equal(t, "failed", string(StatusFailed))
	assert.Equal(t, "cancelled", string(StatusCancelled))
}

func TestSyncService_MarkStaleJobsAsFailed_KeepsPrincipalLockedUntilRunExits(t *testing.T) {
	runner := &fakeRunner{
		result:       okResult(),
		block:        make(chan struct{}),
		started:      make(chan string, 2),
		ignoreCancel: true,
	}
	svc := NewSyncService(runner, lock.NewMemory(), testLogger(), Config{})
	ctx := context.Background()

	jobID, err := svc.StartSync(ctx, SyncRequest{PrincipalID: "seller-1"})
	require.NoError(t, err)
	<-runner.started

	time.Sleep(2 * time.Millisecond)
	require.Equal(t, 1, svc.MarkStaleJobsAsFailed(time.Hour, time.Millisecond))

	job, err := svc.GetSyncJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)

	// The old run is still inside Run, so the principal stays busy
	_, err = svc.StartSync(ctx, SyncRequest{PrincipalID: "seller-1"})
	assert.ErrorIs(t, err, ErrSyncInProgress)
	_, err = svc.RunSync(ctx, SyncRequest{PrincipalID: "seller-1"})
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Len(t, runner.Calls(), 1)

	close(runner.block)

	var nextID string
	require.Eventually(t, func() bool {
		nextID, err = svc.StartSync(ctx, SyncRequest{PrincipalID: "seller-1"})
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	waitForStatus(t, svc, nextID, StatusCompleted)

	job, err = svc.GetSyncJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status, "a stale job is not revived by its late result")
}

func testLogger() *slog.Logger {
	return logging.Discard()
}

func TestSyncJob_IsStale(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		status     SyncStatus
		startedAgo time.Duration
		updatedAgo time.Duration
		want       bool
		reason     string
	}{
		{name: "completed job is never stale", status: StatusCompleted, startedAgo: 3 * time.Hour, updatedAgo: 2 * time.Hour},
		{name: "cancelled job is never stale", status: StatusCancelled, startedAgo: 3 * time.Hour, updatedAgo: 2 * time.Hour},
		{name: "running without progress", status: StatusRunning, startedAgo: 10 * time.Minute, updatedAgo: 35 * time.Minute, want: true, reason: "no progress update"},
		{name: "running too long", status: StatusRunning, startedAgo: 3 * time.Hour, want: true, reason: "exceeded max duration"},
		{name: "pending too long", status: StatusPending, startedAgo: 3 * time.Hour, want: true, reason: "exceeded max duration"},
		{name: "healthy running job", status: StatusRunning, startedAgo: 10 * time.Minute, updatedAgo: 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &SyncJob{
				Status:    tt.status,
				StartedAt: now.Add(-tt.startedAgo),
				Progress:  SyncProgress{LastUpdate: now.Add(-tt.updatedAgo)},
			}

			assert.Equal(t, tt.want, job.IsStale(now, 30*time.Minute, 2*time.Hour))
			if tt.want {
				assert.Contains(t, job.StaleReason(now, 30*time.Minute, 2*time.Hour), tt.reason)
			}
		})
	}
}

func TestSyncService_MarkStaleJobsAsFailed_MarksStaleJobs(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	// Add a stale job
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.jobsMutex.Lock()
	svc.jobs["stale-job"] = &SyncJob{
		ID:          "stale-job",
		PrincipalID: "seller-1",
		Status:      StatusRunning,
		StartedAt:   time.Now().Add(-3 * time.Hour),
		Progress:    SyncProgress{LastUpdate: time.Now().Add(-35 * time.Minute)},
		cancelFunc:  cancel,
	}
	svc.jobsMutex.Unlock()

	// Mark stale jobs
	marked := svc.MarkStaleJobsAsFailed(30*time.Minute, 2*time.Hour)

	assert.Equal(t, 1, marked)

	// Verify job was marked as failed
	job, err := svc.GetSyncJob("stale-job")
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.NotNil(t, job.Error)
	assert.Contains(t, job.Error.Error(), "stale")

	// Verify context was cancelled
	select {
	case <-ctx.Done():
		// Expected
	default:
		t.Error("context should have been cancelled")
	}
}

func TestSyncService_MarkStaleJobsAsFailed_SkipsHealthyJobs(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	// Add a healthy job
	svc.jobsMutex.Lock()
	svc.jobs["healthy-job"] = &SyncJob{
		ID:          "healthy-job",
		PrincipalID: "seller-1",
		Status:      StatusRunning,
		StartedAt:   time.Now().Add(-10 * time.Minute),
		Progress:    SyncProgress{LastUpdate: time.Now().Add(-5 * time.Minute)},
	}
	svc.jobsMutex.Unlock()

	// Try to mark stale jobs
	marked := svc.MarkStaleJobsAsFailed(30*time.Minute, 2*time.Hour)

	assert.Equal(t, 0, marked)

	// Verify job is still running
	job, err := svc.GetSyncJob("healthy-job")
	assert.NoError(t, err)
	assert.Equal(t, StatusRunning, job.Status)
}

func TestSyncService_MarkStaleJobsAsFailed_SkipsCompletedJobs(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	// Add a completed job that would appear "stale" if we checked it
	completedTime := time.Now().Add(-1 * time.Hour)
	svc.jobsMutex.Lock()
	svc.jobs["completed-job"] = &SyncJob{
		ID:          "completed-job",
		PrincipalID: "seller-1",
		Status:      StatusCompleted,
		StartedAt:   time.Now().Add(-3 * time.Hour),
		CompletedAt: &completedTime,
		Progress:    SyncProgress{LastUpdate: completedTime},
	}
	svc.jobsMutex.Unlock()

	// Try to mark stale jobs
	marked := svc.MarkStaleJobsAsFailed(30*time.Minute, 2*time.Hour)

	assert.Equal(t, 0, marked)

	// Verify job is still completed (not changed to failed)
	job, err := svc.GetSyncJob("completed-job")
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestSyncService_CleanupOldJobs_RemovesOldCompletedJobs(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	// Add an old completed job
	oldTime := time.Now().Add(-25 * time.Hour)
	svc.jobsMutex.Lock()
	svc.jobs["old-job"] = &SyncJob{
		ID:          "old-job",
		PrincipalID: "seller-1",
		Status:      StatusCompleted,
		CompletedAt: &oldTime,
	}
	svc.jobsMutex.Unlock()

	// Cleanup jobs older than 24 hours
	removed := svc.CleanupOldJobs(24 * time.Hour)

	assert.Equal(t, 1, removed)

	// Verify job was removed
	_, err := svc.GetSyncJob("old-job")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSyncService_CleanupOldJobs_KeepsRecentCompletedJobs(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	// Add a recently completed job
	recentTime := time.Now().Add(-1 * time.Hour)
	svc.jobsMutex.Lock()
	svc.jobs["recent-job"] = &SyncJob{
		ID:          "recent-job",
		PrincipalID: "seller-1",
		Status:      StatusCompleted,
		CompletedAt: &recentTime,
	}
	svc.jobsMutex.Unlock()

	// Cleanup jobs older than 24 hours
	removed := svc.CleanupOldJobs(24 * time.Hour)

	assert.Equal(t, 0, removed)

	// Verify job still exists
	_, err := svc.GetSyncJob("recent-job")
	assert.NoError(t, err)
}

func TestSyncService_CleanupOldJobs_KeepsRunningJobs(t *testing.T) {
	svc := NewSyncService(nil, lock.NewMemory(), testLogger(), Config{})

	// Add an old running job (shouldn't be removed by cleanup)
	svc.jobsMutex.Lock()
	svc.jobs["running-job"] = &SyncJob{
		ID:          "running-job",
		PrincipalID: "seller-1",
		Status:      StatusRunning,
		StartedAt:   time.Now().Add(-25 * time.Hour),
	}
	svc.jobsMutex.Unlock()

	// Cleanup old jobs
	removed := svc.CleanupOldJobs(24 * time.Hour)

	// Running jobs should NOT be removed
	assert.Equal(t, 0, removed)

	// Verify job still exists
	_, err := svc.GetSyncJob("running-job")
	assert.NoError(t, err)
}
