// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

// jenkmcp is an MCP gateway for Jenkins: it exposes job, build, node
// and queue operations plus agent diagnostics and recovery as tools
// over stdio, gated by safety tiers and recorded in a hash-chained
// audit log.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jenkmcp/jenkmcp/internal/audit"
	"github.com/jenkmcp/jenkmcp/internal/cli"
	"github.com/jenkmcp/jenkmcp/internal/config"
	"github.com/jenkmcp/jenkmcp/internal/creds"
	"github.com/jenkmcp/jenkmcp/internal/jenkins"
	"github.com/jenkmcp/jenkmcp/internal/mcpserver"
	"github.com/jenkmcp/jenkmcp/internal/recovery"
	"github.com/jenkmcp/jenkmcp/internal/tlspolicy"
	"github.com/jenkmcp/jenkmcp/internal/tool"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// MCP owns stdout, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "jenkmcp: config: %v\n", err)
		return 1
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--audit":
			return cli.RunAudit(os.Stdout, cfg.Audit.Path, os.Args[2:])
		case "--version":
			fmt.Printf("jenkmcp %s\n", version)
			return 0
		case "--list":
			tierFilter := ""
			args := os.Args[2:]
			for i := 0; i < len(args); i++ {
				if args[i] == "--tier" && i+1 < len(args) {
					tierFilter = args[i+1]
					i++
				}
			}
			reg := tool.NewRegistry(cfg.Username, nil, logger)
			if cfg.URL == "" {
				cfg.URL = "http://localhost:8080" // listing never dials
			}
			client, eng, err := buildCore(cfg, logger, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "jenkmcp: %v\n", err)
				return 1
			}
			mcpserver.RegisterAll(reg, client, eng)
			return cli.RunList(reg, os.Stdout, tierFilter)
		default:
			fmt.Fprintf(os.Stderr, "jenkmcp: unknown flag %q\n", os.Args[1])
			return 1
		}
	}

	auditLog, err := audit.NewLogger(cfg.Audit.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jenkmcp: audit: %v\n", err)
		// Continue without audit logging.
		auditLog = nil
	}

	client, eng, err := buildCore(cfg, logger, auditLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jenkmcp: %v\n", err)
		return 1
	}

	reg := tool.NewRegistry(cfg.Username, auditLog, logger)
	cfg.ApplyTiers(reg)
	mcpserver.RegisterAll(reg, client, eng)

	srv := mcpserver.New("jenkmcp", version, reg, logger)
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "jenkmcp: %v\n", err)
		return 1
	}
	return 0
}

// buildCore wires config into the Jenkins client and recovery engine.
func buildCore(cfg *config.Config, logger *slog.Logger, auditLog *audit.Logger) (*jenkins.Client, *recovery.Engine, error) {
	policy, err := tlspolicy.Resolve(cfg.RawFlags(), logger)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, nil, err
	}

	store := creds.NewStore(cfg.Username, cfg.APIToken, cfg.Password)

	client, err := jenkins.New(jenkins.Options{
		BaseURL:     cfg.URL,
		Credentials: store,
		TLS:         policy,
		Timeout:     cfg.Timeout(),
		MaxRetries:  cfg.MaxRetries,
		RateLimit:   cfg.RateLimit,
		Logger:      logger,
		Audit:       auditLog,
	})
	if err != nil {
		return nil, nil, err
	}

	eng := recovery.NewEngine(recovery.Options{
		API:      client,
		Audit:    auditLog,
		Logger:   logger,
		Username: store.Username,
	})
	return client, eng, nil
}
