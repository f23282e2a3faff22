// Package fixture provides a deterministic in-memory marketplace used in
// development ("mock" mode) and in tests.
package fixture

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
)

// Fixed token values handed out by the fixture
const (
	AccessTokenValue    = "mock_access_token"
	RefreshTokenValue   = "mock_refresh_token"
	RefreshedTokenValue = "mock_access_token_refreshed"
	ExternalUserID      = "mock_seller_123"

	// TokenLifetime is the lifetime of every token the fixture mints
	TokenLifetime = 55 * time.Minute

	DefaultAuthorizeURL = "http://localhost:3000/mock/ebay/authorize"
)

// Config configures the fixture client. Zero values fall back to defaults.
type Config struct {
	AuthorizeURL string
	ClientID     string
	RuName       string

	// Orders replaces the default two-order fixture
	Orders []marketplace.RawOrder

	Now func() time.Time
}

// Client is an in-memory marketplace.Client. Pagination uses token cursors
// holding the stringified index of the next order.
type Client struct {
	cfg    Config
	orders []marketplace.RawOrder

	mu            sync.Mutex
	exchangeCalls int
	refreshCalls  int
	fetchCalls    int
	seenRequests  []marketplace.PageRequest

	// Error injection. FetchErr is called with the 1-based fetch number and
	// may return an error to fail that call.
	ExchangeErr error
	RefreshErr  error
	FetchErr    func(call int) error
}

var _ marketplace.Client = (*Client)(nil)

// New creates a fixture client
func New(cfg Config) *Client {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	orders := cfg.Orders
	if orders == nil {
		orders = DefaultOrders()
	}
	return &Client{cfg: cfg, orders: orders}
}

// Name identifies the variant
func (c *Client) Name() string { return "fixture" }

// BuildAuthorizeURL returns a local URL shaped like the real consent URL
func (c *Client) BuildAuthorizeURL(scopes []string, state string) string {
	clientID := c.cfg.ClientID
	if clientID == "" {
		clientID = "mock"
	}
	ruName := c.cfg.RuName
	if ruName == "" {
		ruName = "mock"
	}

	var b strings.Builder
	b.WriteString(c.cfg.AuthorizeURL)
	b.WriteString("?client_id=")
	b.WriteString(url.QueryEscape(clientID))
	b.WriteString("&redirect_uri=")
	b.WriteString(url.QueryEscape(ruName))
	b.WriteString("&response_type=code")
	b.WriteString("&scope=")
	b.WriteString(marketplace.EncodeScopes(scopes))
	b.WriteString("&state=")
	b.WriteString(url.QueryEscape(state))
	return b.String()
}

// ExchangeAuthorizationCode returns the fixed mock tokens
func (c *Client) ExchangeAuthorizationCode(_ context.Context, _ string) (*marketplace.TokenGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchangeCalls++
	if c.ExchangeErr != nil {
		return nil, c.ExchangeErr
	}
	return &marketplace.TokenGrant{
		AccessToken:          AccessTokenValue,
		RefreshToken:         RefreshTokenValue,
		AccessTokenExpiresAt: c.cfg.Now().Add(TokenLifetime),
		ExternalUserID:       ExternalUserID,
	}, nil
}

// RefreshAccessToken returns the fixed refreshed token
func (c *Client) RefreshAccessToken(_ context.Context, _ string) (*marketplace.AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshCalls++
	if c.RefreshErr != nil {
		return nil, c.RefreshErr
	}
	return &marketplace.AccessToken{
		Token:     RefreshedTokenValue,
		ExpiresAt: c.cfg.Now().Add(TokenLifetime),
	}, nil
}

// FetchOrdersPage filters the fixture by creation date and slices a page
func (c *Client) FetchOrdersPage(ctx context.Context, req marketplace.PageRequest) (*marketplace.Page, error) {
	c.mu.Lock()
	c.fetchCalls++
	call := c.fetchCalls
	c.seenRequests = append(c.seenRequests, req)
	hook := c.FetchErr
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}

	filtered := make([]marketplace.RawOrder, 0, len(c.orders))
	for _, o := range c.orders {
		if inWindow(o, req.CreatedFrom, req.CreatedTo) {
			filtered = append(filtered, o)
		}
	}

	start := 0
	switch req.Cursor.Kind() {
	case marketplace.CursorToken:
		tok, _ := req.Cursor.Token()
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return nil, &marketplace.PermanentFetchError{StatusCode: 400, Body: "invalid continuation token"}
		}
		start = n
	case marketplace.CursorOffset:
		return nil, &marketplace.PermanentFetchError{StatusCode: 400, Body: "fixture paginates with tokens"}
	}

	size := req.PageSize
	if size <= 0 {
		size = 1
	}
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}

	page := &marketplace.Page{Orders: filtered[start:end], Next: marketplace.NoCursor}
	if end < len(filtered) {
		page.Next = marketplace.TokenCursor(strconv.Itoa(end))
	}
	return page, nil
}

// inWindow applies [from, to) to the order's creationDate. Orders without a
// parseable date only match an unbounded window.
func inWindow(raw marketplace.RawOrder, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	var header struct {
		CreationDate string `json:"creationDate"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return false
	}
	ts, err := time.Parse(time.RFC3339, header.CreationDate)
	if err != nil {
		return false
	}
	if from != nil && ts.Before(*from) {
		return false
	}
	if to != nil && !ts.Before(*to) {
		return false
	}
	return true
}

// ExchangeCalls returns how many exchanges were performed
func (c *Client) ExchangeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchangeCalls
}

// RefreshCalls returns how many refreshes were performed
func (c *Client) RefreshCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshCalls
}

// FetchCalls returns how many pages were requested
func (c *Client) FetchCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchCalls
}

// Requests returns every page request received
func (c *Client) Requests() []marketplace.PageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]marketplace.PageRequest(nil), c.seenRequests...)
}
