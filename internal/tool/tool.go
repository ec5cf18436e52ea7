// SPDX-License-Identifier: Apache-2.0

// Package tool maps named operations onto safety tiers and gates
// execution on tier enablement. The transport layer registers each
// operation here and dispatches incoming calls through the registry so
// tier policy lives in one place.
package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jenkmcp/jenkmcp/internal/audit"
)

// Tier represents the safety level of an operation.
type Tier int

const (
	TierRead      Tier = iota // read-only queries (list jobs, get status)
	TierBuild                 // build triggers
	TierWrite                 // job mutations (create, update)
	TierDangerous             // destructive operations (delete, restart)
)

func (t Tier) String() string {
	switch t {
	case TierRead:
		return "read"
	case TierBuild:
		return "build"
	case TierWrite:
		return "write"
	case TierDangerous:
		return "dangerous"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier converts a string to a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "read":
		return TierRead, nil
	case "build":
		return TierBuild, nil
	case "write":
		return TierWrite, nil
	case "dangerous":
		return TierDangerous, nil
	default:
		return 0, fmt.Errorf("unknown tier: %q", s)
	}
}

// Handler executes a tool call with decoded arguments and returns the
// text payload for the caller.
type Handler func(ctx context.Context, args Args) (string, error)

// Param describes one argument in a tool's schema. The transport layer
// translates these into its own schema representation.
type Param struct {
	Name        string
	Type        string // "string", "number", "boolean" or "object"
	Description string
	Required    bool
}

// Tool is one registered operation.
type Tool struct {
	Name        string
	Description string
	Tier        Tier
	Params      []Param
	Handler     Handler
}

// DeniedError reports a call blocked by tier policy.
type DeniedError struct {
	Tool string
	Tier Tier
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("tool %q requires the %q tier, which is disabled", e.Tool, e.Tier)
}

// Registry maps tool names to implementations and controls tier access.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	tiers map[Tier]bool

	user   string
	audit  *audit.Logger
	logger *slog.Logger
}

// NewRegistry creates a registry with all tiers enabled except
// Dangerous. Denied calls are written to the audit log under user.
func NewRegistry(user string, auditLog *audit.Logger, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools: make(map[string]*Tool),
		tiers: map[Tier]bool{
			TierRead:      true,
			TierBuild:     true,
			TierWrite:     true,
			TierDangerous: false,
		},
		user:   user,
		audit:  auditLog,
		logger: logger,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %q", name)
	}
	return t, nil
}

// SetTier enables or disables a tier.
func (r *Registry) SetTier(t Tier, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[t] = enabled
}

// CheckTier returns an error if the given tier is not enabled.
func (r *Registry) CheckTier(t Tier) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.tiers[t] {
		return fmt.Errorf("tier %q is disabled", t)
	}
	return nil
}

// Dispatch looks up name, enforces its tier and runs the handler.
// Tier denials are recorded in the audit log before returning a
// *DeniedError.
func (r *Registry) Dispatch(ctx context.Context, name string, args Args) (string, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	if err := r.CheckTier(t.Tier); err != nil {
		r.logger.Warn("tool call denied", "tool", name, "tier", t.Tier.String())
		if r.audit != nil {
			if aerr := r.audit.Log(r.user, name, "", audit.ResultDenied, err.Error(), map[string]any{
				"tier": t.Tier.String(),
			}); aerr != nil {
				r.logger.Warn("audit write failed", "error", aerr)
			}
		}
		return "", &DeniedError{Tool: name, Tier: t.Tier}
	}
	return t.Handler(ctx, args)
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools
}
