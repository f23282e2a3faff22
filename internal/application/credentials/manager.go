// Package credentials keeps each principal's marketplace access token fresh.
//
// The read-check-refresh-write sequence runs under a per-principal lock, so
// concurrent callers for the same principal trigger at most one refresh.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/lock"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// DefaultRefreshAhead is how close to expiry a token may get before it is refreshed
const DefaultRefreshAhead = 60 * time.Second

var (
	// ErrNoCredential means the principal never completed authorization
	ErrNoCredential = errors.New("no marketplace credential for principal")

	// ErrReauthRequired means the token is stale and no refresh token is stored
	ErrReauthRequired = errors.New("marketplace re-authorization required")

	// ErrInvalidPrincipal rejects an empty principal id
	ErrInvalidPrincipal = errors.New("principal id is required")
)

// Config tunes the manager
type Config struct {
	RefreshAhead time.Duration
}

// Manager hands out valid access tokens
type Manager struct {
	repo         storage.CredentialRepository
	client       marketplace.Client
	locker       lock.Locker
	logger       *slog.Logger
	refreshAhead time.Duration
	now          func() time.Time
}

// NewManager creates a credential manager
func NewManager(repo storage.CredentialRepository, client marketplace.Client, locker lock.Locker, logger *slog.Logger, cfg Config) *Manager {
	if cfg.RefreshAhead <= 0 {
		cfg.RefreshAhead = DefaultRefreshAhead
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:         repo,
		client:       client,
		locker:       locker,
		logger:       logger,
		refreshAhead: cfg.RefreshAhead,
		now:          time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func lockKey(principalID string) string {
	return "credential:" + principalID
}

// EnsureFreshAccessToken returns an access token valid for more than the
// refresh-ahead window, refreshing it first if needed.
func (m *Manager) EnsureFreshAccessToken(ctx context.Context, principalID string) (string, error) {
	if principalID == "" {
		return "", ErrInvalidPrincipal
	}

	release, err := m.locker.Acquire(ctx, lockKey(principalID))
	if err != nil {
		return "", fmt.Errorf("lock credential for %s: %w", principalID, err)
	}
	defer release()

	cred, err := m.repo.GetCredential(ctx, principalID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("principal %s: %w", principalID, ErrNoCredential)
	}
	if err != nil {
		return "", err
	}

	if !m.needsRefresh(cred) {
		return cred.AccessToken, nil
	}

	if !cred.HasRefreshToken() {
		return "", fmt.Errorf("principal %s: %w", principalID, ErrReauthRequired)
	}

	m.logger.Debug("refreshing access token",
		"principal_id", principalID,
		"expires_at", cred.AccessTokenExpiresAt)

	fresh, err := m.client.RefreshAccessToken(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("principal %s: %w", principalID, err)
	}

	if err := m.repo.UpdateAccessToken(ctx, principalID, fresh.Token, fresh.ExpiresAt); err != nil {
		// Non-fatal: the caller still gets the refreshed token.
		m.logger.Warn("failed to persist refreshed access token",
			"principal_id", principalID,
			"error", err)
	}

	return fresh.Token, nil
}

// needsRefresh is true when expiry is unknown or within refreshAhead of now
func (m *Manager) needsRefresh(cred *storage.Credential) bool {
	if cred.AccessToken == "" || cred.AccessTokenExpiresAt.IsZero() {
		return true
	}
	return cred.AccessTokenExpiresAt.Sub(m.now()) <= m.refreshAhead
}

// StoreGrant creates or replaces the principal's credential from a completed
// authorization, under the same lock as refreshes.
func (m *Manager) StoreGrant(ctx context.Context, principalID string, grant *marketplace.TokenGrant) error {
	if principalID == "" {
		return ErrInvalidPrincipal
	}

	release, err := m.locker.Acquire(ctx, lockKey(principalID))
	if err != nil {
		return fmt.Errorf("lock credential for %s: %w", principalID, err)
	}
	defer release()

	return m.repo.UpsertCredential(ctx, &storage.Credential{
		PrincipalID:          principalID,
		AccessToken:          grant.AccessToken,
		RefreshToken:         grant.RefreshToken,
		AccessTokenExpiresAt: grant.AccessTokenExpiresAt,
		ExternalUserID:       grant.ExternalUserID,
	})
}

// Status summarizes a principal's credential without exposing tokens
type Status struct {
	Connected            bool      `json:"connected"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at,omitempty"`
	CanRefresh           bool      `json:"can_refresh"`
	ExternalUserID       string    `json:"external_user_id,omitempty"`
}

// GetStatus reports whether the principal is connected
func (m *Manager) GetStatus(ctx context.Context, principalID string) (*Status, error) {
	cred, err := m.repo.GetCredential(ctx, principalID)
	if errors.Is(err, storage.ErrNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Status{
		Connected:            true,
		AccessTokenExpiresAt: cred.AccessTokenExpiresAt,
		CanRefresh:           cred.HasRefreshToken(),
		ExternalUserID:       cred.ExternalUserID,
	}, nil
}
