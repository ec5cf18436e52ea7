// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

// Package jenkins implements the Jenkins request executor and the
// operations facade built on it.
package jenkins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jenkmcp/jenkmcp/internal/audit"
	"github.com/jenkmcp/jenkmcp/internal/creds"
	"github.com/jenkmcp/jenkmcp/internal/session"
	"github.com/jenkmcp/jenkmcp/internal/tlspolicy"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// Options configures a Client. BaseURL and Credentials are required; the
// rest have working defaults.
type Options struct {
	BaseURL     string
	Credentials *creds.Store
	TLS         *tlspolicy.Policy
	Timeout     time.Duration
	MaxRetries  int
	RateLimit   float64 // requests/second, 0 = unlimited
	Logger      *slog.Logger
	Audit       *audit.Logger
}

// Client executes requests against one Jenkins server. It owns the
// session (crumb + cookies) for its lifetime; concurrent use is safe.
type Client struct {
	baseURL    string
	http       *http.Client
	creds      *creds.Store
	session    *session.Session
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
	audit      *audit.Logger

	// sleep is a seam so tests exercise backoff without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a client. The TLS policy, when given, is applied to the
// underlying transport; re-resolving SSL settings requires a new client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, &tlspolicy.ConfigError{Reason: "jenkins base URL is required"}
	}
	if opts.Credentials == nil {
		opts.Credentials = creds.NewStore("", "", "")
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.TLS != nil {
		tlsConfig, err := opts.TLS.TLSConfig()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), int(2*opts.RateLimit)+1)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		baseURL:    baseURL,
		http:       httpClient,
		creds:      opts.Credentials,
		session:    session.New(baseURL, opts.Credentials, httpClient, opts.Logger),
		maxRetries: opts.MaxRetries,
		limiter:    limiter,
		logger:     opts.Logger,
		audit:      opts.Audit,
		sleep:      sleepCtx,
	}, nil
}

// Session exposes the session manager (crumb refresh, whoAmI).
func (c *Client) Session() *session.Session { return c.session }

// BaseURL returns the configured server URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// ResetCredentials replaces the stored credentials and drops the session
// (crumb and cookie jar). The only way the jar is ever cleared.
func (c *Client) ResetCredentials(username, apiToken, password string) {
	c.creds.Configure(username, apiToken, password)
	c.session.Reset()
}

// apiRequest is one pending request. mutating requests get no transport
// retry so a build can never be triggered twice by the executor.
type apiRequest struct {
	method      string
	path        string // relative to base URL, already escaped
	query       url.Values
	body        []byte
	contentType string
	mutating    bool
}

type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r *apiResponse) isJSON() bool {
	return strings.Contains(r.header.Get("Content-Type"), "json")
}

// do executes one logical request. Two independent retry policies apply:
// a one-shot crumb refresh on 403 (deterministic, known cause, does not
// count against the budget) and exponential backoff on transport faults
// (probabilistic, bounded by maxRetries). Mutating requests opt out of
// the transport policy entirely.
func (c *Client) do(ctx context.Context, r apiRequest) (*apiResponse, error) {
	start := time.Now()
	resp, err := c.doInner(ctx, r)
	requestDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		requestsTotal.WithLabelValues(r.method, "success").Inc()
	case isAPIError(err):
		requestsTotal.WithLabelValues(r.method, "api_error").Inc()
	default:
		requestsTotal.WithLabelValues(r.method, "transport_error").Inc()
	}
	return resp, err
}

func (c *Client) doInner(ctx context.Context, r apiRequest) (*apiResponse, error) {
	// Mutating calls need a crumb up front so the 403 path stays the
	// exception, not the norm.
	if r.mutating {
		if _, _, ok := c.session.Crumb(); !ok {
			if err := c.session.FetchCrumb(ctx); err != nil {
				c.logger.Warn("crumb prefetch failed", "error", err)
			}
		}
	}

	maxAttempts := c.maxRetries
	if r.mutating {
		maxAttempts = 1
	}

	crumbRefreshed := false
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.send(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &TransportError{Attempts: attempt, Err: ctx.Err()}
			}
			lastErr = err
			if attempt == maxAttempts {
				break
			}
			requestRetries.WithLabelValues("transport").Inc()
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Debug("transport fault, backing off",
				"attempt", attempt, "backoff", backoff, "error", err)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, &TransportError{Attempts: attempt, Err: err}
			}
			continue
		}

		if resp.status == http.StatusForbidden && !crumbRefreshed {
			// CSRF token expiry is a one-shot recoverable condition:
			// refresh the crumb and replay the identical request once.
			// Jenkins rejects the 403'd request before acting on it.
			crumbRefreshed = true
			requestRetries.WithLabelValues("crumb").Inc()
			c.logger.Debug("403 response, refreshing crumb", "path", r.path)
			if err := c.session.FetchCrumb(ctx); err != nil {
				return nil, &TransportError{Attempts: attempt, Err: err}
			}
			resp, err = c.send(ctx, r)
			if err != nil {
				return nil, &TransportError{Attempts: attempt, Err: err}
			}
		}

		return c.classify(r, resp)
	}

	return nil, &TransportError{Attempts: maxAttempts, Err: lastErr}
}

// send issues exactly one HTTP request and always absorbs cookies from
// the response, success or failure.
func (c *Client) send(ctx context.Context, r apiRequest) (*apiResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.baseURL + "/" + strings.TrimLeft(r.path, "/")
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.session.AuthHeaders() {
		req.Header.Set(k, v)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.session.AbsorbCookies(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &apiResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// classify turns a non-2xx response into the error taxonomy.
func (c *Client) classify(r apiRequest, resp *apiResponse) (*apiResponse, error) {
	if resp.status >= 200 && resp.status < 300 {
		return resp, nil
	}
	if resp.status == http.StatusNotFound {
		return nil, &NotFoundError{Resource: r.path}
	}
	snippet := strings.TrimSpace(string(resp.body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return nil, &APIError{
		Status:     resp.status,
		StatusText: http.StatusText(resp.status),
		Body:       snippet,
	}
}

// getJSON is the common read path: GET, decode JSON into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, apiRequest{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) logAudit(action, target string, result audit.Result, errMsg string, details map[string]any) {
	if c.audit == nil {
		return
	}
	// Best-effort: an operation never fails because auditing did.
	if err := c.audit.Log(c.creds.Username(), action, target, result, errMsg, details); err != nil {
		c.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

func auditResult(err error) (audit.Result, string) {
	if err == nil {
		return audit.ResultSuccess, ""
	}
	return audit.ResultFailed, err.Error()
}

func isAPIError(err error) bool {
	switch err.(type) {
	case *APIError, *NotFoundError:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
