// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jenkmcp/jenkmcp/internal/audit"
	"github.com/jenkmcp/jenkmcp/internal/jenkins"
)

// Default restart commands per platform. A caller-supplied command
// overrides these.
const (
	linuxRestartCommand   = "systemctl restart jenkins-agent || service jenkins-agent restart"
	windowsRestartCommand = "Restart-Service -Name jenkins-agent -Force"
)

// Recover drives the bounded recovery workflow for one node:
//
//	status check -> already online? done
//	soft/auto:     up to maxRetries disconnect/reconnect cycles
//	hard/auto:     one service restart, never retried
//
// Every step is recorded in the returned Attempt; the invocation as a
// whole produces exactly one audit entry.
func (e *Engine) Recover(ctx context.Context, nodeName string, strategy Strategy, maxRetries int) (*Attempt, error) {
	switch strategy {
	case StrategySoft, StrategyHard, StrategyAuto:
	default:
		return nil, fmt.Errorf("unknown recovery strategy %q", strategy)
	}
	if maxRetries <= 0 {
		maxRetries = defaultSoftRetries
	}

	attempt := &Attempt{
		ID:          uuid.NewString(),
		NodeName:    nodeName,
		Strategy:    strategy,
		FinalStatus: FinalFailed,
	}
	defer e.auditAttempt(attempt)

	current := e.checkStatus(ctx, nodeName, attempt)
	if current == StatusOnline {
		attempt.record("already_online", StepSuccess, "node is already online")
		attempt.FinalStatus = FinalRecovered
		return attempt, nil
	}

	if strategy == StrategySoft || strategy == StrategyAuto {
		if e.softRecover(ctx, nodeName, attempt, maxRetries) {
			attempt.FinalStatus = FinalRecovered
			return attempt, nil
		}
	}

	if strategy == StrategyHard || strategy == StrategyAuto {
		attempt.FinalStatus = e.hardRecover(ctx, nodeName, attempt)
	}

	return attempt, nil
}

// checkStatus records the initial status_check step and returns the
// observed status. A failed check is recorded, not fatal; the workflow
// proceeds and treats the node as unknown.
func (e *Engine) checkStatus(ctx context.Context, nodeName string, attempt *Attempt) Status {
	node, err := e.api.GetNodeStatus(ctx, nodeName)
	if err != nil {
		attempt.record("status_check", StepFailed, err.Error())
		return StatusUnknown
	}
	current := status(node)
	attempt.record("status_check", StepSuccess, string(current))
	return current
}

// softRecover cycles the agent channel up to maxRetries times. One step
// is recorded per attempt, success or failure. Returns true once the
// node comes back online.
func (e *Engine) softRecover(ctx context.Context, nodeName string, attempt *Attempt, maxRetries int) bool {
	for i := 1; i <= maxRetries; i++ {
		step := fmt.Sprintf("soft_reconnect_%d", i)

		if err := e.api.DisconnectNode(ctx, nodeName, "recovery: reconnecting agent"); err != nil {
			attempt.record(step, StepFailed, "disconnect: "+err.Error())
			continue
		}
		if err := e.sleep(ctx, e.softCooldown); err != nil {
			attempt.record(step, StepFailed, "cancelled during cool-down")
			return false
		}
		if err := e.api.LaunchNodeAgent(ctx, nodeName); err != nil {
			attempt.record(step, StepFailed, "reconnect: "+err.Error())
			continue
		}

		node, err := e.api.GetNodeStatus(ctx, nodeName)
		if err == nil && status(node) == StatusOnline {
			attempt.record(step, StepSuccess, "node back online")
			return true
		}
		attempt.record(step, StepFailed, "node still not online after reconnect")
	}
	return false
}

// hardRecover restarts the agent's OS service exactly once. Repeated
// uncontrolled service restarts are unsafe, so a failed restart is
// recorded and not retried.
func (e *Engine) hardRecover(ctx context.Context, nodeName string, attempt *Attempt) FinalStatus {
	// The unaudited restart path: the enclosing attempt is the single
	// audit entry for this invocation.
	if _, err := e.restart(ctx, nodeName, "", ""); err != nil {
		attempt.record("hard_restart", StepFailed, err.Error())
		return FinalFailed
	}
	attempt.record("hard_restart", StepSuccess, "restart command dispatched")

	if err := e.sleep(ctx, e.hardSettle); err != nil {
		attempt.record("settle_wait", StepFailed, "cancelled during settle wait")
		return FinalPartial
	}

	node, err := e.api.GetNodeStatus(ctx, nodeName)
	if err == nil && status(node) == StatusOnline {
		attempt.record("post_restart_check", StepSuccess, "node back online")
		return FinalRecovered
	}
	attempt.record("post_restart_check", StepFailed, "node not confirmed online after restart")
	return FinalPartial
}

func (a *Attempt) record(step string, stepStatus StepStatus, message string) {
	a.Steps = append(a.Steps, Step{
		Step:      step,
		Status:    stepStatus,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (e *Engine) auditAttempt(attempt *Attempt) {
	if e.audit == nil {
		return
	}
	result := audit.ResultFailed
	if attempt.FinalStatus == FinalRecovered {
		result = audit.ResultSuccess
	}
	err := e.audit.Log(e.username(), "recover_agent", attempt.NodeName, result, "", map[string]any{
		"attempt_id":   attempt.ID,
		"strategy":     string(attempt.Strategy),
		"steps":        len(attempt.Steps),
		"final_status": string(attempt.FinalStatus),
	})
	if err != nil {
		e.logger.Warn("audit write failed", "action", "recover_agent", "error", err)
	}
}

// RestartAgent restarts the agent's underlying OS service through the
// Jenkins script console. The caller must hold the administer authority;
// the check runs before any mutating call. Every invocation is audited,
// success or failure.
func (e *Engine) RestartAgent(ctx context.Context, nodeName string, platform Platform, command string) (*RestartResult, error) {
	result, err := e.restart(ctx, nodeName, platform, command)
	switch {
	case err == nil:
		e.auditRestart(nodeName, audit.ResultSuccess, "")
	case errors.As(err, new(*jenkins.AuthorizationError)), errors.As(err, new(*jenkins.AuthenticationError)):
		e.auditRestart(nodeName, audit.ResultDenied, err.Error())
	default:
		e.auditRestart(nodeName, audit.ResultFailed, err.Error())
	}
	return result, err
}

// restart performs the admin check and dispatches the restart command
// without writing an audit entry; callers own the audit record.
func (e *Engine) restart(ctx context.Context, nodeName string, platform Platform, command string) (*RestartResult, error) {
	if err := e.api.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	if platform == "" {
		platform = e.detectPlatform(ctx, nodeName)
	}
	if command == "" {
		if platform == PlatformWindows {
			command = windowsRestartCommand
		} else {
			command = linuxRestartCommand
		}
	}

	output, err := e.api.RunNodeScript(ctx, nodeName, restartScript(platform, command))
	if err != nil {
		return nil, err
	}

	return &RestartResult{
		NodeName: nodeName,
		Platform: platform,
		Command:  command,
		Output:   strings.TrimSpace(output),
	}, nil
}

// detectPlatform guesses the host OS from node metadata: a "windows"
// substring in name or description wins, everything else is linux.
func (e *Engine) detectPlatform(ctx context.Context, nodeName string) Platform {
	node, err := e.api.GetNodeStatus(ctx, nodeName)
	if err != nil {
		return PlatformLinux
	}
	meta := strings.ToLower(node.DisplayName + " " + node.Description)
	if strings.Contains(meta, "windows") {
		return PlatformWindows
	}
	return PlatformLinux
}

// restartScript wraps the shell command in the Groovy the script console
// expects, dispatching through the platform shell.
func restartScript(platform Platform, command string) string {
	if platform == PlatformWindows {
		return fmt.Sprintf("println([%q, %q, %q].execute().text)", "powershell.exe", "-Command", command)
	}
	return fmt.Sprintf("println([%q, %q, %q].execute().text)", "/bin/sh", "-c", command)
}

func (e *Engine) auditRestart(nodeName string, result audit.Result, errMsg string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(e.username(), "restart_agent", nodeName, result, errMsg, nil); err != nil {
		e.logger.Warn("audit write failed", "action", "restart_agent", "error", err)
	}
}
