// Package ebay implements marketplace.Client against the eBay OAuth and
// Sell Fulfillment REST APIs.
package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
)

// Environment hosts
const (
	SandboxAuthHost = "https://auth.sandbox.ebay.com"
	SandboxAPIHost  = "https://api.sandbox.ebay.com"
	ProdAuthHost    = "https://auth.ebay.com"
	ProdAPIHost     = "https://api.ebay.com"
)

const (
	authorizePath = "/oauth2/authorize"
	tokenPath     = "/identity/v1/oauth2/token"
	ordersPath    = "/sell/fulfillment/v1/order"

	// defaultExpiresIn applies when the token response omits expires_in
	defaultExpiresIn = 3000 * time.Second

	maxErrorBody = 64 << 10
)

// Config configures the live client
type Config struct {
	Environment  string // "sandbox" (default) or "prod"
	ClientID     string
	ClientSecret string
	RuName       string
	Scopes       []string

	// RetryDelay is the pause before the single retry of a 429/5xx (default 500ms)
	RetryDelay time.Duration

	// RequestsPerSecond throttles outgoing calls; zero disables throttling
	RequestsPerSecond float64

	// Overrides for tests
	AuthBaseURL string
	APIBaseURL  string
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Now         func() time.Time
}

// Client is the live eBay client. Pagination uses offset cursors.
type Client struct {
	cfg     Config
	authURL string
	apiURL  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

var _ marketplace.Client = (*Client)(nil)

// New creates a live client
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		authURL: SandboxAuthHost,
		apiURL:  SandboxAPIHost,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	if strings.EqualFold(cfg.Environment, "prod") || strings.EqualFold(cfg.Environment, "production") {
		c.authURL, c.apiURL = ProdAuthHost, ProdAPIHost
	}
	if cfg.AuthBaseURL != "" {
		c.authURL = strings.TrimRight(cfg.AuthBaseURL, "/")
	}
	if cfg.APIBaseURL != "" {
		c.apiURL = strings.TrimRight(cfg.APIBaseURL, "/")
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.cfg.RetryDelay <= 0 {
		c.cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Name identifies the variant
func (c *Client) Name() string { return "ebay" }

// BuildAuthorizeURL builds the user consent URL. redirect_uri carries the RuName.
func (c *Client) BuildAuthorizeURL(scopes []string, state string) string {
	if len(scopes) == 0 {
		scopes = c.cfg.Scopes
	}
	var b strings.Builder
	b.WriteString(c.authURL)
	b.WriteString(authorizePath)
	b.WriteString("?client_id=")
	b.WriteString(url.QueryEscape(c.cfg.ClientID))
	b.WriteString("&redirect_uri=")
	b.WriteString(url.QueryEscape(c.cfg.RuName))
	b.WriteString("&response_type=code&scope=")
	b.WriteString(marketplace.EncodeScopes(scopes))
	b.WriteString("&state=")
	b.WriteString(url.QueryEscape(state))
	return b.String()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    *int64 `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ExchangeAuthorizationCode trades a consent code for an access/refresh token pair
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code string) (*marketplace.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RuName)

	received := c.now()
	tok, status, body, err := c.postToken(ctx, form)
	if err != nil || status < 200 || status > 299 {
		return nil, &marketplace.AuthExchangeError{StatusCode: status, Body: body, Err: err}
	}
	if tok.AccessToken == "" {
		return nil, &marketplace.AuthExchangeError{StatusCode: status, Body: body, Err: errors.New("response has no access_token")}
	}

	return &marketplace.TokenGrant{
		AccessToken:          tok.AccessToken,
		RefreshToken:         tok.RefreshToken,
		AccessTokenExpiresAt: received.Add(expiresIn(tok.ExpiresIn)),
	}, nil
}

// RefreshAccessToken mints a new access token from a refresh token
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*marketplace.AccessToken, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if len(c.cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(c.cfg.Scopes, " "))
	}

	received := c.now()
	tok, status, body, err := c.postToken(ctx, form)
	if err != nil || status < 200 || status > 299 {
		return nil, &marketplace.TokenRefreshError{StatusCode: status, Body: body, Err: err}
	}
	if tok.AccessToken == "" {
		return nil, &marketplace.TokenRefreshError{StatusCode: status, Body: body, Err: errors.New("response has no access_token")}
	}

	return &marketplace.AccessToken{
		Token:     tok.AccessToken,
		ExpiresAt: received.Add(expiresIn(tok.ExpiresIn)),
	}, nil
}

func expiresIn(v *int64) time.Duration {
	if v == nil || *v <= 0 {
		return defaultExpiresIn
	}
	return time.Duration(*v) * time.Second
}

// postToken calls the token endpoint. A non-nil error means no usable response.
func (c *Client) postToken(ctx context.Context, form url.Values) (*tokenResponse, int, string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID+":"+c.cfg.ClientSecret)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, resp.StatusCode, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, string(raw), nil
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, resp.StatusCode, string(raw), fmt.Errorf("decode token response: %w", err)
	}
	return &tok, resp.StatusCode, string(raw), nil
}

type ordersResponse struct {
	Orders []json.RawMessage `json:"orders"`
	Total  *int              `json:"total"`
	Next   string            `json:"next"`
}

// FetchOrdersPage fetches one page of orders, retrying once on 429/5xx
func (c *Client) FetchOrdersPage(ctx context.Context, req marketplace.PageRequest) (*marketplace.Page, error) {
	offset := 0
	switch req.Cursor.Kind() {
	case marketplace.CursorOffset:
		offset, _ = req.Cursor.Offset()
	case marketplace.CursorToken:
		return nil, &marketplace.PermanentFetchError{Err: errors.New("ebay paginates with offsets, got a token cursor")}
	}
	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	endpoint := c.apiURL + ordersPath + "?" + ordersQuery(limit, offset, req.CreatedFrom, req.CreatedTo)

	body, err := c.getWithRetry(ctx, endpoint, req.AccessToken)
	if err != nil {
		return nil, err
	}

	var parsed ordersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &marketplace.PermanentFetchError{StatusCode: http.StatusOK, Body: string(body), Err: fmt.Errorf("decode orders: %w", err)}
	}

	page := &marketplace.Page{
		Orders: make([]marketplace.RawOrder, 0, len(parsed.Orders)),
		Next:   nextCursor(parsed, limit, offset),
	}
	for _, o := range parsed.Orders {
		page.Orders = append(page.Orders, marketplace.RawOrder(o))
	}
	return page, nil
}

// nextCursor prefers offset arithmetic against total, then the next link
func nextCursor(r ordersResponse, limit, offset int) marketplace.Cursor {
	if r.Total != nil {
		if next := offset + limit; next < *r.Total {
			return marketplace.OffsetCursor(next)
		}
		return marketplace.NoCursor
	}
	if r.Next == "" {
		return marketplace.NoCursor
	}
	u, err := url.Parse(r.Next)
	if err != nil {
		return marketplace.NoCursor
	}
	n, err := strconv.Atoi(u.Query().Get("offset"))
	if err != nil {
		return marketplace.NoCursor
	}
	return marketplace.OffsetCursor(n)
}

const filterTimeLayout = "2006-01-02T15:04:05.000Z"

func ordersQuery(limit, offset int, from, to *time.Time) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("fieldGroups", "TAX_BREAKDOWN")

	if from != nil || to != nil {
		var lo, hi string
		if from != nil {
			lo = from.UTC().Format(filterTimeLayout)
		}
		if to != nil {
			hi = inclusiveUpperBound(*to).Format(filterTimeLayout)
		}
		q.Set("filter", "creationdate:["+lo+".."+hi+"]")
	}
	return q.Encode()
}

// inclusiveUpperBound turns an exclusive upper bound into the last millisecond
// before it, since eBay's creationdate range includes both ends.
func inclusiveUpperBound(to time.Time) time.Time {
	to = to.UTC()
	hi := to.Truncate(time.Millisecond)
	if hi.Equal(to) {
		hi = hi.Add(-time.Millisecond)
	}
	return hi
}

// getWithRetry performs the GET, retrying exactly once after RetryDelay when
// the first attempt hit a transport error, 429 or 5xx.
func (c *Client) getWithRetry(ctx context.Context, endpoint, accessToken string) ([]byte, error) {
	status, body, err := c.get(ctx, endpoint, accessToken)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil && !marketplace.IsRetryableStatus(status) {
		return classify(status, body)
	}

	c.logger.Warn("orders fetch failed, retrying once",
		"status", status, "error", err, "delay", c.cfg.RetryDelay)

	timer := time.NewTimer(c.cfg.RetryDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	status, body, err = c.get(ctx, endpoint, accessToken)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil || marketplace.IsRetryableStatus(status) {
		return nil, &marketplace.TransientFetchError{StatusCode: status, Body: string(body), Err: err}
	}
	return classify(status, body)
}

func classify(status int, body []byte) ([]byte, error) {
	if status >= 200 && status <= 299 {
		return body, nil
	}
	return nil, &marketplace.PermanentFetchError{StatusCode: status, Body: string(body)}
}

func (c *Client) get(ctx context.Context, endpoint, accessToken string) (int, []byte, error) {
	if err := c.wait(ctx); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
