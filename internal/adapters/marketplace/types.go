// Package marketplace defines the contract between the sync engine and a
// marketplace order API, plus the cursor and error types shared by every client.
package marketplace

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// RawOrder is one order exactly as the marketplace returned it
type RawOrder = json.RawMessage

// TokenGrant is the result of exchanging an authorization code
type TokenGrant struct {
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
	ExternalUserID       string
}

// AccessToken is the result of a refresh
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// PageRequest configures a single orders page fetch.
// CreatedFrom is inclusive, CreatedTo exclusive. Nil bounds are open.
type PageRequest struct {
	AccessToken string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Cursor      Cursor
	PageSize    int
}

// Page is one page of raw orders. Next is NoCursor on the last page.
type Page struct {
	Orders []RawOrder
	Next   Cursor
}

// Client is the interface every marketplace variant implements
type Client interface {
	// Name identifies the variant in logs ("fixture", "ebay")
	Name() string

	// BuildAuthorizeURL builds the consent URL. It performs no I/O.
	BuildAuthorizeURL(scopes []string, state string) string

	// ExchangeAuthorizationCode trades a consent code for tokens.
	// Failures are *AuthExchangeError.
	ExchangeAuthorizationCode(ctx context.Context, code string) (*TokenGrant, error)

	// RefreshAccessToken mints a new access token.
	// Failures are *TokenRefreshError.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*AccessToken, error)

	// FetchOrdersPage retrieves one page of orders.
	// Failures are *TransientFetchError or *PermanentFetchError.
	FetchOrdersPage(ctx context.Context, req PageRequest) (*Page, error)
}

// EncodeScopes joins scopes with spaces and percent-encodes the result for a
// query string, spaces as %20 rather than '+'.
func EncodeScopes(scopes []string) string {
	return strings.ReplaceAll(url.QueryEscape(strings.Join(scopes, " ")), "+", "%20")
}
