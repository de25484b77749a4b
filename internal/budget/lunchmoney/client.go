// Package lunchmoney implements budget.TransactionAPI over the Lunch Money v1 REST API.
package lunchmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"getricher/internal/budget"
	"getricher/internal/core"
)

// DefaultBaseURL is the public Lunch Money API root.
const DefaultBaseURL = "https://dev.lunchmoney.app/v1"

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Ensure interface conformance
var _ budget.TransactionAPI = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout sets the overall per-request timeout of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client for the given base URL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", budget.ErrInvalidURL, baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: newHTTPClientWithPooling(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchTransactions requests one page of transactions.
func (c *Client) FetchTransactions(ctx context.Context, token string, req budget.TransactionRequest) ([]core.Transaction, error) {
	q := url.Values{}
	q.Set("start_date", req.StartDate.Format(core.DateLayout))
	q.Set("end_date", req.EndDate.Format(core.DateLayout))
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("offset", strconv.Itoa(req.Offset))
	if req.AccountID != nil {
		q.Set("plaid_account_id", strconv.FormatInt(*req.AccountID, 10))
	}

	var body transactionsResponse
	if err := c.get(ctx, token, "transactions", q, &body); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Fetched transactions page",
		"offset", req.Offset,
		"limit", req.Limit,
		"count", len(body.Transactions))

	return toTransactions(body.Transactions), nil
}

// FetchAccounts lists the Plaid-linked accounts.
func (c *Client) FetchAccounts(ctx context.Context, token string) ([]core.Account, error) {
	var body plaidAccountsResponse
	if err := c.get(ctx, token, "plaid_accounts", nil, &body); err != nil {
		return nil, err
	}
	return toAccounts(body.PlaidAccounts), nil
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", budget.ErrInvalidURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", budget.ErrInvalidResponse, err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", budget.ErrInvalidResponse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.WarnContext(ctx, "Lunch Money request failed",
			"path", path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds())
		return &budget.ServerError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &budget.DecodeError{Err: err}
	}
	return nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and conservative timeouts for a single API host.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
