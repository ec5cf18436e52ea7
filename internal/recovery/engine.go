// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jenkmcp/jenkmcp/internal/audit"
	"github.com/jenkmcp/jenkmcp/internal/jenkins"
)

// Provisional thresholds; the simulated metrics provider means these have
// not been tuned against real signal.
const (
	cpuHighPercent      = 90.0
	memoryHighRatio     = 0.9
	diskHighRatio       = 0.9
	recentFailureLimit  = 3
	defaultSoftRetries  = 3
	defaultSoftCooldown = 5 * time.Second
	defaultHardSettle   = 15 * time.Second
)

// API is the slice of the Jenkins facade the engine depends on.
// *jenkins.Client satisfies it.
type API interface {
	GetNodeStatus(ctx context.Context, name string) (*jenkins.Node, error)
	DisconnectNode(ctx context.Context, name, message string) error
	LaunchNodeAgent(ctx context.Context, name string) error
	RunNodeScript(ctx context.Context, name, script string) (string, error)
	RequireAdmin(ctx context.Context) error
	ListJobs(ctx context.Context) ([]jenkins.JobSummary, error)
}

// Options configures an Engine.
type Options struct {
	API      API
	Metrics  NodeMetricsProvider // nil = SimulatedMetrics
	Audit    *audit.Logger
	Logger   *slog.Logger
	Username func() string // acting user for audit entries

	SoftCooldown time.Duration // wait after a soft disconnect, default 5s
	HardSettle   time.Duration // wait after a hard restart, default 15s
}

// Engine runs diagnostics and recovery for one Jenkins server. The engine
// itself is stateless across calls; every invocation works from a fresh
// status check.
type Engine struct {
	api          API
	metrics      NodeMetricsProvider
	audit        *audit.Logger
	logger       *slog.Logger
	username     func() string
	softCooldown time.Duration
	hardSettle   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine builds an engine with defaults filled in.
func NewEngine(opts Options) *Engine {
	if opts.Metrics == nil {
		opts.Metrics = SimulatedMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Username == nil {
		opts.Username = func() string { return "" }
	}
	if opts.SoftCooldown == 0 {
		opts.SoftCooldown = defaultSoftCooldown
	}
	if opts.HardSettle == 0 {
		opts.HardSettle = defaultHardSettle
	}
	return &Engine{
		api:          opts.API,
		metrics:      opts.Metrics,
		audit:        opts.Audit,
		logger:       opts.Logger,
		username:     opts.Username,
		softCooldown: opts.SoftCooldown,
		hardSettle:   opts.HardSettle,
		sleep:        sleepCtx,
	}
}

// status maps the Jenkins node view onto the engine's state set.
func status(node *jenkins.Node) Status {
	switch {
	case node == nil:
		return StatusUnknown
	case !node.Offline:
		return StatusOnline
	case node.TemporarilyOffline:
		return StatusDisconnected
	default:
		return StatusOffline
	}
}

// Diagnose assembles a fresh health report for one node. Metrics and
// build history are best-effort: their collection errors degrade the
// report rather than failing it.
func (e *Engine) Diagnose(ctx context.Context, nodeName string) (*Diagnosis, error) {
	node, err := e.api.GetNodeStatus(ctx, nodeName)
	if err != nil {
		return nil, err
	}

	d := &Diagnosis{
		NodeName: nodeName,
		Status:   status(node),
	}
	if node.OfflineCauseReason != "" {
		d.RecentErrors = append(d.RecentErrors, node.OfflineCauseReason)
	}

	if metrics, err := e.metrics.Collect(ctx, nodeName); err == nil {
		d.Metrics = metrics
	} else {
		e.logger.Warn("metrics collection failed", "node", nodeName, "error", err)
	}

	if history, err := e.buildHistory(ctx); err == nil {
		d.BuildHistory = history
	} else {
		e.logger.Warn("build history collection failed", "node", nodeName, "error", err)
	}

	return d, nil
}

// buildHistory approximates recent build health from job colors; red
// means the last build failed, the _anime suffix means a build is
// running.
func (e *Engine) buildHistory(ctx context.Context) (*BuildHistory, error) {
	jobs, err := e.api.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	h := &BuildHistory{Total: len(jobs)}
	for _, j := range jobs {
		if j.Color == "red" || j.Color == "red_anime" {
			h.Failed++
			h.RecentFailures++
		}
	}
	return h, nil
}

// DetectIssues runs the threshold rules against a fresh diagnosis and
// derives a recommended action by severity precedence. Deterministic:
// the same diagnosis always yields the same report.
func (e *Engine) DetectIssues(ctx context.Context, nodeName string) (*Report, error) {
	d, err := e.Diagnose(ctx, nodeName)
	if err != nil {
		return nil, err
	}
	return Classify(d), nil
}

// Classify applies the threshold rules to a diagnosis.
func Classify(d *Diagnosis) *Report {
	var issues []Issue

	if d.Status != StatusOnline {
		issues = append(issues, Issue{
			Type:        IssueConnection,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("node %s is %s", d.NodeName, d.Status),
			Suggestion:  "reconnect the agent channel or restart the agent service",
		})
	}

	if m := d.Metrics; m != nil {
		if m.CPUPercent > cpuHighPercent {
			issues = append(issues, Issue{
				Type:        IssuePerformance,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("CPU at %.0f%%", m.CPUPercent),
				Suggestion:  "identify runaway builds or reduce executor count",
			})
		}
		if m.MemoryTotal > 0 && m.MemoryUsed/m.MemoryTotal > memoryHighRatio {
			issues = append(issues, Issue{
				Type:        IssueResource,
				Severity:    SeverityMedium,
				Description: fmt.Sprintf("memory at %.0f%% of capacity", 100*m.MemoryUsed/m.MemoryTotal),
				Suggestion:  "restart the agent service to reclaim memory",
			})
		}
		if m.DiskTotal > 0 && m.DiskUsed/m.DiskTotal > diskHighRatio {
			issues = append(issues, Issue{
				Type:        IssueResource,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("disk at %.0f%% of capacity", 100*m.DiskUsed/m.DiskTotal),
				Suggestion:  "clean the workspace directory or grow the volume",
			})
		}
	}

	if h := d.BuildHistory; h != nil && h.RecentFailures > recentFailureLimit {
		issues = append(issues, Issue{
			Type:        IssueBuildFailure,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("%d recent build failures", h.RecentFailures),
			Suggestion:  "inspect recent build logs for a common cause",
		})
	}

	action, confidence := recommend(issues)
	return &Report{
		Diagnosis:         d,
		Issues:            issues,
		RecommendedAction: action,
		Confidence:        confidence,
	}
}

// recommend picks the action by severity precedence with a fixed
// confidence per branch.
func recommend(issues []Issue) (string, float64) {
	var hasCritical, hasHigh, hasConnection bool
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			hasCritical = true
		case SeverityHigh:
			hasHigh = true
		}
		if issue.Type == IssueConnection {
			hasConnection = true
		}
	}

	switch {
	case hasCritical:
		return "reboot", 0.9
	case hasHigh:
		return "restart_service", 0.8
	case hasConnection:
		return "restart_service", 0.7
	case len(issues) > 0:
		return "investigate", 0.6
	default:
		return "monitor", 0.5
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
