// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

// Package creds holds the Jenkins credentials for one client instance.
package creds

import (
	"encoding/base64"
	"sync"
)

// AuthMethod identifies which secret a store will present to Jenkins.
type AuthMethod string

const (
	MethodToken    AuthMethod = "token"
	MethodPassword AuthMethod = "password"
	MethodNone     AuthMethod = "none"
)

// Store owns a username plus at most one active secret. An API token takes
// precedence over a password when both are configured.
type Store struct {
	mu       sync.RWMutex
	username string
	apiToken string
	password string
}

// NewStore returns a store with the given credentials. Any field may be
// empty; the store is simply unconfigured until Configure supplies both a
// username and a secret.
func NewStore(username, apiToken, password string) *Store {
	return &Store{username: username, apiToken: apiToken, password: password}
}

// Configure replaces the stored credentials.
func (s *Store) Configure(username, apiToken, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.apiToken = apiToken
	s.password = password
}

// Clear removes all stored credentials.
func (s *Store) Clear() {
	s.Configure("", "", "")
}

// IsConfigured reports whether a username and at least one secret are set.
func (s *Store) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username != "" && (s.apiToken != "" || s.password != "")
}

// Method returns which secret the store will use.
func (s *Store) Method() AuthMethod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.username == "":
		return MethodNone
	case s.apiToken != "":
		return MethodToken
	case s.password != "":
		return MethodPassword
	default:
		return MethodNone
	}
}

// Username returns the configured username, which may be empty.
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// BasicAuthHeader returns the value for an Authorization header, or
// ok=false when the store is not configured.
func (s *Store) BasicAuthHeader() (value string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.username == "" {
		return "", false
	}
	secret := s.apiToken
	if secret == "" {
		secret = s.password
	}
	if secret == "" {
		return "", false
	}
	raw := s.username + ":" + secret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), true
}
