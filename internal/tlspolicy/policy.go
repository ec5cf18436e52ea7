// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

// Package tlspolicy turns raw SSL configuration flags into a concrete
// trust policy and builds the tls.Config the HTTP transport uses. It
// never performs network I/O.
package tlspolicy

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
)

// RawFlags mirrors the environment-style SSL settings handed to the
// client at construction. Cert material may be supplied inline or as a
// file path; inline content wins when both are set.
type RawFlags struct {
	Verify            bool
	AllowSelfSigned   bool
	BypassAll         bool
	CAPath            string
	CAContent         string
	ClientCertPath    string
	ClientCertContent string
	ClientKeyPath     string
	ClientKeyContent  string
	Debug             bool
}

// Policy is the resolved trust configuration. It is read-only after
// Resolve; changing SSL settings requires constructing a new client.
type Policy struct {
	Verify          bool
	AllowSelfSigned bool
	BypassAll       bool
	CACert          []byte
	ClientCert      []byte
	ClientKey       []byte
	Debug           bool

	// retained for Validate so missing files are reported by path
	caPath   string
	certPath string
	keyPath  string
}

// ConfigError reports invalid SSL or credential configuration, detected
// before any I/O.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "ssl configuration: " + e.Reason
}

// CertLoadError reports a certificate file that is missing or unreadable.
type CertLoadError struct {
	Path string
	Err  error
}

func (e *CertLoadError) Error() string {
	return fmt.Sprintf("load certificate %s: %v", e.Path, e.Err)
}

func (e *CertLoadError) Unwrap() error { return e.Err }

// Resolve applies the priority rules to the raw flags:
//  1. BypassAll disables trust entirely, regardless of other flags.
//  2. Verify=false or AllowSelfSigned disables chain verification, so
//     no CA material is loaded.
//  3. Otherwise the CA is loaded from inline content or file path.
//
// Independently, a client cert and key must be supplied together or not
// at all.
func Resolve(raw RawFlags, logger *slog.Logger) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Policy{
		Verify:          raw.Verify,
		AllowSelfSigned: raw.AllowSelfSigned,
		BypassAll:       raw.BypassAll,
		Debug:           raw.Debug,
	}

	if raw.BypassAll {
		logger.Warn("SSL verification is FULLY BYPASSED; all certificates will be accepted", "bypass_all", true)
		p.Verify = false
		return p, nil
	}

	if !raw.Verify || raw.AllowSelfSigned {
		return p, nil
	}

	// Verification with pinning: paths are retained so Validate can
	// report which file went missing.
	p.caPath = raw.CAPath
	p.certPath = raw.ClientCertPath
	p.keyPath = raw.ClientKeyPath

	switch {
	case raw.CAContent != "":
		p.CACert = []byte(raw.CAContent)
	case raw.CAPath != "":
		data, err := os.ReadFile(raw.CAPath)
		if err != nil {
			return nil, &CertLoadError{Path: raw.CAPath, Err: err}
		}
		p.CACert = data
	}

	cert, key, err := resolveClientPair(raw)
	if err != nil {
		return nil, err
	}
	p.ClientCert, p.ClientKey = cert, key

	return p, nil
}

func resolveClientPair(raw RawFlags) (cert, key []byte, err error) {
	hasCert := raw.ClientCertContent != "" || raw.ClientCertPath != ""
	hasKey := raw.ClientKeyContent != "" || raw.ClientKeyPath != ""
	if hasCert != hasKey {
		return nil, nil, &ConfigError{Reason: "client certificate and key must be configured together"}
	}
	if !hasCert {
		return nil, nil, nil
	}

	if raw.ClientCertContent != "" {
		cert = []byte(raw.ClientCertContent)
	} else {
		cert, err = os.ReadFile(raw.ClientCertPath)
		if err != nil {
			return nil, nil, &CertLoadError{Path: raw.ClientCertPath, Err: err}
		}
	}

	if raw.ClientKeyContent != "" {
		key = []byte(raw.ClientKeyContent)
	} else {
		key, err = os.ReadFile(raw.ClientKeyPath)
		if err != nil {
			return nil, nil, &CertLoadError{Path: raw.ClientKeyPath, Err: err}
		}
	}

	return cert, key, nil
}

// Validate stats any file paths the policy was resolved from and fails if
// a referenced file is missing or not a regular file.
func (p *Policy) Validate() error {
	for _, path := range []string{p.caPath, p.certPath, p.keyPath} {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return &CertLoadError{Path: path, Err: err}
		}
		if !info.Mode().IsRegular() {
			return &CertLoadError{Path: path, Err: fmt.Errorf("not a regular file")}
		}
	}
	return nil
}

// TLSConfig builds the transport configuration for this policy.
func (p *Policy) TLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{}

	if p.BypassAll || !p.Verify || p.AllowSelfSigned {
		cfg.InsecureSkipVerify = true
		return cfg, nil
	}

	if len(p.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(p.CACert) {
			return nil, &ConfigError{Reason: "CA certificate is not valid PEM"}
		}
		cfg.RootCAs = pool
	}

	if len(p.ClientCert) > 0 {
		pair, err := tls.X509KeyPair(p.ClientCert, p.ClientKey)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("client certificate: %v", err)}
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	return cfg, nil
}
