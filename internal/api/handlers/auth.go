package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/marketplace-order-sync/internal/api/dto"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/credentials"
)

// OAuthFlow is the consent flow the auth handler drives
type OAuthFlow interface {
	Connect(ctx context.Context, principalID string) (string, error)
	Callback(ctx context.Context, code, state string) (string, error)
}

// CredentialStatus reports a principal's connection
type CredentialStatus interface {
	GetStatus(ctx context.Context, principalID string) (*credentials.Status, error)
}

// AuthHandler handles the marketplace OAuth endpoints.
type AuthHandler struct {
	*Base
	flow   OAuthFlow
	status CredentialStatus
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(flow OAuthFlow, status CredentialStatus) *AuthHandler {
	return &AuthHandler{Base: &Base{}, flow: flow, status: status}
}

// Connect handles GET /auth/marketplace/connect - redirects to the consent page.
func (h *AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	principalID := r.URL.Query().Get("principal_id")
	if principalID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("principal_id is required"))
		return
	}

	url, err := h.flow.Connect(r.Context(), principalID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Callback handles GET /auth/marketplace/callback - completes the consent flow.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	principalID, err := h.flow.Callback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ConnectedResponse{
		PrincipalID: principalID,
		Connected:   true,
		Message:     "Marketplace connected. You can close this window.",
	})
}

// Status handles GET /api/credentials/{principalId} - reports connection state.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	principalID := chi.URLParam(r, "principalId")

	st, err := h.status.GetStatus(r.Context(), principalID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	response := dto.CredentialStatusResponse{
		PrincipalID:    principalID,
		Connected:      st.Connected,
		CanRefresh:     st.CanRefresh,
		ExternalUserID: st.ExternalUserID,
	}
	if !st.AccessTokenExpiresAt.IsZero() {
		expires := st.AccessTokenExpiresAt.UTC().Format(time.RFC3339)
		response.AccessTokenExpiresAt = &expires
	}

	h.WriteJSON(w, http.StatusOK, response)
}
