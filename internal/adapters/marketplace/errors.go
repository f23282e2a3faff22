package marketplace

import (
	"errors"
	"fmt"
)

// AuthExchangeError is a failed authorization-code exchange
type AuthExchangeError struct {
	StatusCode int
	Body       string
	Err        error // transport failure, when there was no response
}

func (e *AuthExchangeError) Error() string {
	return describe("auth code exchange failed", e.StatusCode, e.Body, e.Err)
}

func (e *AuthExchangeError) Unwrap() error { return e.Err }

// TokenRefreshError is a failed access-token refresh
type TokenRefreshError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenRefreshError) Error() string {
	return describe("token refresh failed", e.StatusCode, e.Body, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// TransientFetchError is a rate-limit, server or transport failure that
// persisted through the single retry
type TransientFetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransientFetchError) Error() string {
	return describe("transient orders fetch failure", e.StatusCode, e.Body, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Retryable reports true: a later run may succeed
func (e *TransientFetchError) Retryable() bool { return true }

// PermanentFetchError is any other non-success response
type PermanentFetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *PermanentFetchError) Error() string {
	return describe("orders fetch failed", e.StatusCode, e.Body, e.Err)
}

func (e *PermanentFetchError) Unwrap() error { return e.Err }

// Retryable reports false
func (e *PermanentFetchError) Retryable() bool { return false }

// IsRetryableStatus reports whether a status earns the single retry
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status <= 599)
}

// IsTransient reports whether err is a TransientFetchError
func IsTransient(err error) bool {
	var t *TransientFetchError
	return errors.As(err, &t)
}

func describe(prefix string, status int, body string, err error) string {
	switch {
	case err != nil && status == 0:
		return fmt.Sprintf("%s: %v", prefix, err)
	case body != "":
		return fmt.Sprintf("%s: status %d: %s", prefix, status, truncate(body, 512))
	default:
		return fmt.Sprintf("%s: status %d", prefix, status)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
