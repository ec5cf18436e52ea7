// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the mutable per-client Jenkins state: the CSRF
// crumb and the cookie jar. All mutation goes through one mutex so a
// single client instance can be shared by concurrent callers.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/jenkmcp/jenkmcp/internal/creds"
)

// Session tracks the crumb and cookies for one Jenkins client. Crumb and
// crumb header name are set together or not at all; cookies accumulate
// for the lifetime of the client and are only cleared by Reset.
type Session struct {
	baseURL string
	store   *creds.Store
	http    *http.Client
	logger  *slog.Logger

	mu          sync.Mutex
	crumb       string
	crumbHeader string
	cookies     map[string]string
}

// Identity is the whoAmI response.
type Identity struct {
	Name          string   `json:"name"`
	Anonymous     bool     `json:"anonymous"`
	Authenticated bool     `json:"authenticated"`
	Authorities   []string `json:"authorities"`
}

// New builds a session for the given base URL. The HTTP client must
// already carry the resolved TLS policy.
func New(baseURL string, store *creds.Store, httpClient *http.Client, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		http:    httpClient,
		logger:  logger,
		cookies: make(map[string]string),
	}
}

type crumbResponse struct {
	Crumb             string `json:"crumb"`
	CrumbRequestField string `json:"crumbRequestField"`
}

// FetchCrumb asks the crumb issuer for a fresh CSRF token. A non-2xx
// response is not a hard failure: Jenkins installations with CSRF
// protection disabled return 404 here, so the prior crumb (if any) is
// left untouched and a warning is logged. Only transport errors are
// returned.
func (s *Session) FetchCrumb(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/crumbIssuer/api/json", nil)
	if err != nil {
		return fmt.Errorf("build crumb request: %w", err)
	}
	s.applyHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch crumb: %w", err)
	}
	defer resp.Body.Close()
	s.AbsorbCookies(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("crumb issuer returned non-2xx; CSRF protection may be disabled",
			"status", resp.StatusCode)
		return nil
	}

	var cr crumbResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		s.logger.Warn("crumb issuer response is not valid JSON", "error", err)
		return nil
	}
	if cr.Crumb == "" || cr.CrumbRequestField == "" {
		s.logger.Warn("crumb issuer response is missing fields")
		return nil
	}

	s.mu.Lock()
	s.crumb = cr.Crumb
	s.crumbHeader = cr.CrumbRequestField
	s.mu.Unlock()

	s.logger.Debug("crumb refreshed", "header", cr.CrumbRequestField)
	return nil
}

// AuthHeaders returns a snapshot of the headers every request must carry:
// basic auth, the crumb under its server-announced name plus the
// conventional Jenkins-Crumb alias, and the accumulated cookies.
func (s *Session) AuthHeaders() map[string]string {
	headers := make(map[string]string, 4)
	if auth, ok := s.store.BasicAuthHeader(); ok {
		headers["Authorization"] = auth
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb != "" {
		headers[s.crumbHeader] = s.crumb
		headers["Jenkins-Crumb"] = s.crumb
	}
	if len(s.cookies) > 0 {
		names := make([]string, 0, len(s.cookies))
		for name := range s.cookies {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, name+"="+s.cookies[name])
		}
		headers["Cookie"] = strings.Join(pairs, "; ")
	}
	return headers
}

// AbsorbCookies upserts the first name=value pair of every Set-Cookie
// header into the jar. Called after every response, success or failure,
// to keep session affinity (sticky load-balancer cookies in particular).
func (s *Session) AbsorbCookies(resp *http.Response) {
	setCookies := resp.Header.Values("Set-Cookie")
	if len(setCookies) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range setCookies {
		pair, _, _ := strings.Cut(raw, ";")
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		s.cookies[name] = value
	}
}

// TestAuthentication calls whoAmI and returns the server-reported
// authenticated flag. Transport errors propagate; an unauthenticated
// identity is a false return, not an error.
func (s *Session) TestAuthentication(ctx context.Context) (bool, error) {
	id, err := s.WhoAmI(ctx)
	if err != nil {
		return false, err
	}
	s.logger.Info("authentication test", "identity", id.Name, "authenticated", id.Authenticated)
	return id.Authenticated, nil
}

// WhoAmI returns the identity Jenkins resolves for the configured
// credentials, including granted authorities.
func (s *Session) WhoAmI(ctx context.Context) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/whoAmI/api/json", nil)
	if err != nil {
		return nil, fmt.Errorf("build whoAmI request: %w", err)
	}
	s.applyHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whoAmI: %w", err)
	}
	defer resp.Body.Close()
	s.AbsorbCookies(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("whoAmI: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("whoAmI: decode: %w", err)
	}
	return &id, nil
}

// Reset drops the crumb and empties the cookie jar. Used when credentials
// are explicitly replaced; nothing clears the jar implicitly.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crumb = ""
	s.crumbHeader = ""
	s.cookies = make(map[string]string)
}

// Crumb reports the current crumb, if any.
func (s *Session) Crumb() (value, header string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crumb, s.crumbHeader, s.crumb != ""
}

func (s *Session) applyHeaders(req *http.Request) {
	for k, v := range s.AuthHeaders() {
		req.Header.Set(k, v)
	}
}
