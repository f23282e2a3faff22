package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/api/dto"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/auth"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/credentials"
	"github.com/eshaffer321/marketplace-order-sync/internal/application/service"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps an application error to its HTTP status and code.
func (b *Base) WriteServiceError(w http.ResponseWriter, err error) {
	status, apiErr := ErrorResponse(err)
	b.WriteError(w, status, apiErr)
}

// ErrorResponse classifies err for the HTTP surface.
func ErrorResponse(err error) (int, dto.APIError) {
	var (
		exchangeErr  *marketplace.AuthExchangeError
		refreshErr   *marketplace.TokenRefreshError
		transientErr *marketplace.TransientFetchError
		permanentErr *marketplace.PermanentFetchError
	)

	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		return http.StatusConflict, dto.NewAPIError(dto.ErrCodeSyncInProgress, err.Error())
	case errors.Is(err, service.ErrInvalidPrincipal), errors.Is(err, auth.ErrInvalidPrincipal), errors.Is(err, credentials.ErrInvalidPrincipal):
		return http.StatusBadRequest, dto.ValidationError("principal_id is required")
	case errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, dto.NotFoundError("sync job")
	case errors.Is(err, credentials.ErrNoCredential):
		return http.StatusPreconditionFailed, dto.NewAPIError(dto.ErrCodeNoCredential, err.Error())
	case errors.Is(err, credentials.ErrReauthRequired):
		return http.StatusPreconditionFailed, dto.NewAPIError(dto.ErrCodeReauthRequired, err.Error())
	case errors.Is(err, auth.ErrInvalidState):
		return http.StatusBadRequest, dto.NewAPIError(dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, auth.ErrMissingCode):
		return http.StatusBadRequest, dto.BadRequestError(err.Error())
	case errors.As(err, &exchangeErr):
		return http.StatusBadGateway, dto.NewAPIError(dto.ErrCodeAuthExchange, err.Error())
	case errors.As(err, &transientErr):
		return http.StatusServiceUnavailable, dto.NewAPIError(dto.ErrCodeUnavailable, err.Error())
	case errors.As(err, &refreshErr), errors.As(err, &permanentErr):
		return http.StatusBadGateway, dto.NewAPIError(dto.ErrCodeUpstream, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, dto.NewAPIError(dto.ErrCodeNotFound, err.Error())
	default:
		return http.StatusInternalServerError, dto.InternalError()
	}
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
