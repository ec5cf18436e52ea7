// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package jenkins

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed caller input (job name, build number,
// parameters), detected before any request is issued. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthenticationError reports that Jenkins resolved the configured
// credentials to an unauthenticated identity.
type AuthenticationError struct {
	Identity string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("not authenticated (resolved identity %q)", e.Identity)
}

// AuthorizationError reports a privileged operation attempted without the
// required authority. Raised before any mutating call is made.
type AuthorizationError struct {
	User      string
	Authority string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %q lacks the %s authority", e.User, e.Authority)
}

// APIError reports a non-2xx Jenkins response other than the transparently
// handled 403 crumb-refresh case.
type APIError struct {
	Status     int
	StatusText string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("jenkins returned %d %s: %s", e.Status, e.StatusText, e.Body)
	}
	return fmt.Sprintf("jenkins returned %d %s", e.Status, e.StatusText)
}

// NotFoundError is a 404, surfaced distinctly so callers can present
// did-you-mean suggestions for typo'd names.
type NotFoundError struct {
	Resource    string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found; did you mean one of: %s", e.Resource, strings.Join(e.Suggestions, ", "))
}

// TransportError reports a network-level failure (timeout, connection
// reset, TLS handshake) after the retry budget is exhausted.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
