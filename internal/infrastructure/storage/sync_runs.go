package storage

import (
	"context"
	"database/sql"
	"errors"
)

// StartSyncRun records the start of a sync run
func (s *Storage) StartSyncRun(ctx context.Context, principalID string, windowDays int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (principal_id, started_at, window_days, status)
		VALUES (?, ?, ?, ?)`,
		principalID, s.now(), windowDays, SyncRunRunning)
	if err != nil {
		return 0, persistErr("start sync run", err)
	}
	id, err := res.LastInsertId()
	return id, persistErr("start sync run", err)
}

// CompleteSyncRun records the completion of a sync run
func (s *Storage) CompleteSyncRun(ctx context.Context, runID int64, stats SyncRunStats) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET completed_at = ?, pages = ?, orders_processed = ?, lines_processed = ?,
		    orders_created = ?, lines_matched = ?, status = ?
		WHERE id = ?`,
		s.now(), stats.Pages, stats.OrdersProcessed, stats.LinesProcessed,
		stats.OrdersCreated, stats.LinesMatched, SyncRunCompleted, runID)
	return persistErr("complete sync run", err)
}

// FailSyncRun marks a sync run as failed
func (s *Storage) FailSyncRun(ctx context.Context, runID int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET completed_at = ?, status = ?, error_message = ? WHERE id = ?`,
		s.now(), SyncRunFailed, errMsg, runID)
	return persistErr("fail sync run", err)
}

const syncRunColumns = `id, principal_id, started_at, completed_at, window_days, pages,
	orders_processed, lines_processed, orders_created, lines_matched, status, error_message`

func scanSyncRun(row rowScanner) (*SyncRun, error) {
	r := &SyncRun{}
	var completedAt sql.NullTime
	err := row.Scan(&r.ID, &r.PrincipalID, &r.StartedAt, &completedAt, &r.WindowDays, &r.Pages,
		&r.OrdersProcessed, &r.LinesProcessed, &r.OrdersCreated, &r.LinesMatched,
		&r.Status, &r.ErrorMessage)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return r, nil
}

// ListSyncRuns returns the most recent sync runs first
func (s *Storage) ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+syncRunColumns+` FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, persistErr("list sync runs", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []SyncRun{}
	for rows.Next() {
		r, err := scanSyncRun(rows)
		if err != nil {
			return nil, persistErr("list sync runs", err)
		}
		runs = append(runs, *r)
	}
	return runs, persistErr("list sync runs", rows.Err())
}

// GetSyncRun retrieves a sync run by ID
func (s *Storage) GetSyncRun(ctx context.Context, runID int64) (*SyncRun, error) {
	r, err := scanSyncRun(s.db.QueryRowContext(ctx,
		`SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get sync run", err)
	}
	return r, nil
}
