// Package auth runs the marketplace OAuth consent flow for a principal:
// Connect issues a single-use state and the authorize URL, Callback redeems
// it and stores the resulting credential.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/statestore"
)

var (
	// ErrInvalidState covers unknown, expired and replayed states
	ErrInvalidState = errors.New("invalid or expired oauth state")

	// ErrMissingCode is returned when the callback carries no code
	ErrMissingCode = errors.New("authorization code is required")

	// ErrInvalidPrincipal rejects an empty principal id
	ErrInvalidPrincipal = errors.New("principal id is required")
)

// GrantStore persists a completed authorization
type GrantStore interface {
	StoreGrant(ctx context.Context, principalID string, grant *marketplace.TokenGrant) error
}

// Service wires the state store, marketplace client and credential store
type Service struct {
	client   marketplace.Client
	states   statestore.Store
	grants   GrantStore
	scopes   []string
	logger   *slog.Logger
	newState func() string
	now      func() time.Time
}

// NewService creates the OAuth service
func NewService(client marketplace.Client, states statestore.Store, grants GrantStore, scopes []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:   client,
		states:   states,
		grants:   grants,
		scopes:   scopes,
		logger:   logger,
		newState: uuid.NewString,
		now:      time.Now,
	}
}

// Connect starts authorization for a principal and returns the URL the user
// should be redirected to.
func (s *Service) Connect(ctx context.Context, principalID string) (string, error) {
	if principalID == "" {
		return "", ErrInvalidPrincipal
	}

	state := s.newState()
	if err := s.states.Put(ctx, state, statestore.Entry{PrincipalID: principalID, CreatedAt: s.now()}); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}

	s.logger.Info("issued oauth state", "principal_id", principalID, "client", s.client.Name())
	return s.client.BuildAuthorizeURL(s.scopes, state), nil
}

// Callback redeems a state and exchanges the code. It returns the principal
// the credential was stored for.
func (s *Service) Callback(ctx context.Context, code, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}

	entry, err := s.states.Consume(ctx, state)
	if errors.Is(err, statestore.ErrNotFound) {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state: %w", err)
	}

	// The state is spent even when the code is missing
	if code == "" {
		return "", ErrMissingCode
	}

	grant, err := s.client.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		s.logger.Warn("authorization code exchange failed",
			"principal_id", entry.PrincipalID,
			"error", err)
		return "", fmt.Errorf("principal %s: %w", entry.PrincipalID, err)
	}

	if err := s.grants.StoreGrant(ctx, entry.PrincipalID, grant); err != nil {
		return "", fmt.Errorf("store credential for %s: %w", entry.PrincipalID, err)
	}

	s.logger.Info("marketplace connected",
		"principal_id", entry.PrincipalID,
		"external_user_id", grant.ExternalUserID,
		"expires_at", grant.AccessTokenExpiresAt)
	return entry.PrincipalID, nil
}
