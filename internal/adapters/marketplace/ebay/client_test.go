package ebay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/logging"
)

var fixedNow = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		ClientID:     "my-client",
		ClientSecret: "my-secret",
		RuName:       "My-RuName",
		Scopes:       []string{"https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly"},
		RetryDelay:   time.Millisecond,
		AuthBaseURL:  srv.URL,
		APIBaseURL:   srv.URL,
		Logger:       logging.Discard(),
		Now:          func() time.Time { return fixedNow },
	})
}

func TestBuildAuthorizeURL(t *testing.T) {
	c := New(Config{ClientID: "my-client", RuName: "My-RuName", Environment: "prod"})

	raw := c.BuildAuthorizeURL([]string{"scope.one", "scope.two"}, "abc 123")
	assert.Contains(t, raw, "https://auth.ebay.com/oauth2/authorize?")
	assert.Contains(t, raw, "scope=scope.one%20scope.two")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "my-client", q.Get("client_id"))
	assert.Equal(t, "My-RuName", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "abc 123", q.Get("state"))
}

func TestNew_DefaultsToSandbox(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, SandboxAuthHost, c.authURL)
	assert.Equal(t, SandboxAPIHost, c.apiURL)
}

func TestExchangeAuthorizationCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, tokenPath, r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("my-client:my-secret"))
		assert.Equal(t, wantAuth, r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "My-RuName", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","expires_in":7200,"refresh_token":"rt","token_type":"User Access Token"}`)
	})

	grant, err := c.ExchangeAuthorizationCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at", grant.AccessToken)
	assert.Equal(t, "rt", grant.RefreshToken)
	assert.Equal(t, fixedNow.Add(2*time.Hour), grant.AccessTokenExpiresAt)
}

func TestExchangeAuthorizationCode_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	})

	_, err := c.ExchangeAuthorizationCode(context.Background(), "bad")
	var exErr *marketplace.AuthExchangeError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, http.StatusBadRequest, exErr.StatusCode)
	assert.Contains(t, exErr.Body, "invalid_grant")
}

func TestRefreshAccessToken_DefaultExpiry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly", r.PostForm.Get("scope"))
		fmt.Fprint(w, `{"access_token":"fresh"}`)
	})

	tok, err := c.RefreshAccessToken(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.Token)
	assert.Equal(t, fixedNow.Add(3000*time.Second), tok.ExpiresAt)
}

func TestRefreshAccessToken_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"refresh token revoked"}`)
	})

	_, err := c.RefreshAccessToken(context.Background(), "rt")
	var refErr *marketplace.TokenRefreshError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, http.StatusUnauthorized, refErr.StatusCode)
	assert.Contains(t, refErr.Body, "revoked")
}

func TestFetchOrdersPage_OffsetFromTotal(t *testing.T) {
	from := time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)
	to := fixedNow

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ordersPath, r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("limit"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "TAX_BREAKDOWN", q.Get("fieldGroups"))
		assert.Equal(t, "creationdate:[2025-06-17T12:00:00.000Z..2025-09-15T11:59:59.999Z]", q.Get("filter"))
		fmt.Fprint(w, `{"total":3,"orders":[{"orderId":"A"},{"orderId":"B", "x": 1}]}`)
	})

	page, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{
		AccessToken: "token-1",
		CreatedFrom: &from,
		CreatedTo:   &to,
		PageSize:    2,
	})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, `{"orderId":"B", "x": 1}`, string(page.Orders[1]), "raw bytes are preserved")
	assert.Equal(t, marketplace.OffsetCursor(2), page.Next)
}

func TestOrdersQuery_CreationDateFilter(t *testing.T) {
	from := time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)
	subMilli := fixedNow.Add(500 * time.Microsecond)
	eastern := fixedNow.In(time.FixedZone("EDT", -4*60*60))

	tests := []struct {
		name string
		from *time.Time
		to   *time.Time
		want string
	}{
		{name: "exclusive upper bound", from: &from, to: &fixedNow, want: "creationdate:[2025-06-17T12:00:00.000Z..2025-09-15T11:59:59.999Z]"},
		{name: "sub-millisecond upper bound", from: &from, to: &subMilli, want: "creationdate:[2025-06-17T12:00:00.000Z..2025-09-15T12:00:00.000Z]"},
		{name: "non-UTC upper bound", to: &eastern, want: "creationdate:[..2025-09-15T11:59:59.999Z]"},
		{name: "open upper bound", from: &from, want: "creationdate:[2025-06-17T12:00:00.000Z..]"},
		{name: "no bounds", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(ordersQuery(10, 0, tt.from, tt.to))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Get("filter"))
		})
	}
}

func TestFetchOrdersPage_LastPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("offset"))
		fmt.Fprint(w, `{"total":3,"orders":[{"orderId":"C"}]}`)
	})

	page, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{
		AccessToken: "t", PageSize: 2, Cursor: marketplace.OffsetCursor(2),
	})
	require.NoError(t, err)
	assert.True(t, page.Next.IsNone())
}

func TestFetchOrdersPage_NextLinkFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"orders":[{"orderId":"A"}],"next":"https://api.ebay.com/sell/fulfillment/v1/order?limit=1&offset=1"}`)
	})

	page, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{AccessToken: "t", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, marketplace.OffsetCursor(1), page.Next)
}

func TestFetchOrdersPage_RetriesOnceOn429(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"total":0,"orders":[]}`)
	})

	page, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{AccessToken: "t"})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchOrdersPage_TransientAfterSecondFailure(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "try later")
	})

	_, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{AccessToken: "t"})
	var tErr *marketplace.TransientFetchError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusServiceUnavailable, tErr.StatusCode)
	assert.Equal(t, "try later", tErr.Body)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "exactly one retry")
}

func TestFetchOrdersPage_PermanentNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errors":[{"message":"Insufficient permissions"}]}`)
	})

	_, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{AccessToken: "t"})
	var pErr *marketplace.PermanentFetchError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, http.StatusForbidden, pErr.StatusCode)
	assert.Contains(t, pErr.Body, "Insufficient permissions")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchOrdersPage_RetryThenPermanent(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{AccessToken: "t"})
	var pErr *marketplace.PermanentFetchError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, http.StatusBadRequest, pErr.StatusCode)
}

func TestFetchOrdersPage_RejectsTokenCursor(t *testing.T) {
	c := New(Config{})
	_, err := c.FetchOrdersPage(context.Background(), marketplace.PageRequest{Cursor: marketplace.TokenCursor("x")})
	var pErr *marketplace.PermanentFetchError
	assert.True(t, errors.As(err, &pErr))
}

func TestFetchOrdersPage_ContextCancelledDuringRetryDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{APIBaseURL: srv.URL, RetryDelay: time.Hour, Logger: logging.Discard()})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchOrdersPage(ctx, marketplace.PageRequest{AccessToken: "t"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
