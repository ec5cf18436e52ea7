// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

// Package recovery diagnoses Jenkins agent health and drives a bounded
// soft/hard recovery workflow against unhealthy nodes.
package recovery

import (
	"context"
	"time"
)

// Status is the health state of one agent.
type Status string

const (
	StatusOnline       Status = "online"
	StatusOffline      Status = "offline"
	StatusDisconnected Status = "disconnected"
	StatusUnknown      Status = "unknown"
)

// Metrics is one sample of host-level signals for a node.
type Metrics struct {
	CPUPercent  float64 `json:"cpuPercent"`
	MemoryUsed  float64 `json:"memoryUsedMB"`
	MemoryTotal float64 `json:"memoryTotalMB"`
	DiskUsed    float64 `json:"diskUsedGB"`
	DiskTotal   float64 `json:"diskTotalGB"`
}

// NodeMetricsProvider collects host metrics for a node. The default
// implementation is simulated; a real remote-exec collector can be
// substituted without touching classification or recovery.
type NodeMetricsProvider interface {
	Collect(ctx context.Context, node string) (*Metrics, error)
}

// BuildHistory summarizes recent build outcomes relevant to a node.
type BuildHistory struct {
	Total          int `json:"total"`
	Failed         int `json:"failed"`
	RecentFailures int `json:"recentFailures"`
}

// Diagnosis is one point-in-time health report for a node. Produced
// fresh per call, never persisted.
type Diagnosis struct {
	NodeName     string        `json:"nodeName"`
	Status       Status        `json:"status"`
	Metrics      *Metrics      `json:"systemInfo,omitempty"`
	RecentErrors []string      `json:"recentErrors,omitempty"`
	BuildHistory *BuildHistory `json:"buildHistory,omitempty"`
}

// IssueType classifies a detected problem.
type IssueType string

const (
	IssueConnection   IssueType = "connection"
	IssuePerformance  IssueType = "performance"
	IssueBuildFailure IssueType = "build_failure"
	IssueResource     IssueType = "resource"
	IssueService      IssueType = "service"
)

// Severity orders issues for action selection.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Issue is one problem derived deterministically from a Diagnosis.
type Issue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
}

// Report is the output of issue detection: the issues plus a recommended
// action chosen by severity precedence with a fixed confidence per branch.
type Report struct {
	Diagnosis         *Diagnosis `json:"diagnosis"`
	Issues            []Issue    `json:"issues"`
	RecommendedAction string     `json:"recommendedAction"` // reboot, restart_service, investigate, monitor
	Confidence        float64    `json:"confidence"`
}

// Strategy selects the recovery workflow.
type Strategy string

const (
	StrategySoft Strategy = "soft" // disconnect/reconnect the agent channel
	StrategyHard Strategy = "hard" // restart the underlying OS service
	StrategyAuto Strategy = "auto" // soft first, hard if still unhealthy
)

// StepStatus is the outcome of one recovery step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Step is one recorded action within a recovery attempt.
type Step struct {
	Step      string     `json:"step"`
	Status    StepStatus `json:"status"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// FinalStatus is the overall outcome of a recovery attempt.
type FinalStatus string

const (
	FinalRecovered FinalStatus = "recovered"
	FinalPartial   FinalStatus = "partial" // restart issued but node not confirmed online
	FinalFailed    FinalStatus = "failed"
)

// Attempt is the full record of one recovery invocation, returned to the
// caller and mirrored into the audit log.
type Attempt struct {
	ID          string      `json:"id"`
	NodeName    string      `json:"nodeName"`
	Strategy    Strategy    `json:"strategy"`
	Steps       []Step      `json:"steps"`
	FinalStatus FinalStatus `json:"finalStatus"`
}

// Platform identifies an agent host OS for restart command selection.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
)

// RestartResult reports an agent service restart.
type RestartResult struct {
	NodeName string   `json:"nodeName"`
	Platform Platform `json:"platform"`
	Command  string   `json:"command"`
	Output   string   `json:"output"`
}
