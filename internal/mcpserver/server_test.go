package mcpserver

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jenkmcp/jenkmcp/internal/creds"
	"github.com/jenkmcp/jenkmcp/internal/jenkins"
	"github.com/jenkmcp/jenkmcp/internal/recovery"
	"github.com/jenkmcp/jenkmcp/internal/tool"
)

func newTestRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	client, err := jenkins.New(jenkins.Options{
		BaseURL:     "http://127.0.0.1:1",
		Credentials: creds.NewStore("tester", "token", ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	eng := recovery.NewEngine(recovery.Options{API: client})
	reg := tool.NewRegistry("tester", nil, slog.Default())
	RegisterAll(reg, client, eng)
	return reg
}

func TestRegisterAllToolSurface(t *testing.T) {
	reg := newTestRegistry(t)

	wantTiers := map[string]tool.Tier{
		"list_jobs":             tool.TierRead,
		"get_job":               tool.TierRead,
		"get_job_config":        tool.TierRead,
		"create_job":            tool.TierWrite,
		"update_job":            tool.TierWrite,
		"delete_job":            tool.TierDangerous,
		"trigger_build":         tool.TierBuild,
		"get_build":             tool.TierRead,
		"get_build_logs":        tool.TierRead,
		"stop_build":            tool.TierDangerous,
		"list_nodes":            tool.TierRead,
		"get_node_status":       tool.TierRead,
		"get_queue":             tool.TierRead,
		"cancel_queue_item":     tool.TierDangerous,
		"get_version":           tool.TierRead,
		"who_am_i":              tool.TierRead,
		"get_agent_diagnostics": tool.TierRead,
		"detect_agent_issues":   tool.TierRead,
		"recover_agent":         tool.TierDangerous,
		"restart_agent":         tool.TierDangerous,
	}

	all := reg.All()
	if len(all) != len(wantTiers) {
		t.Errorf("registered %d tools, want %d", len(all), len(wantTiers))
	}
	for _, tl := range all {
		want, ok := wantTiers[tl.Name]
		if !ok {
			t.Errorf("unexpected tool %q", tl.Name)
			continue
		}
		if tl.Tier != want {
			t.Errorf("tool %q tier = %v, want %v", tl.Name, tl.Tier, want)
		}
		if tl.Description == "" {
			t.Errorf("tool %q has no description", tl.Name)
		}
	}
}

func TestToMCPToolSchema(t *testing.T) {
	reg := newTestRegistry(t)
	tl, err := reg.Lookup("trigger_build")
	if err != nil {
		t.Fatal(err)
	}

	mt := toMCPTool(tl)
	if mt.Name != "trigger_build" {
		t.Errorf("name = %q", mt.Name)
	}
	if len(mt.InputSchema.Required) != 1 || mt.InputSchema.Required[0] != "name" {
		t.Errorf("required = %v, want [name]", mt.InputSchema.Required)
	}
	for _, prop := range []string{"name", "parameters", "delay"} {
		if _, ok := mt.InputSchema.Properties[prop]; !ok {
			t.Errorf("schema missing property %q", prop)
		}
	}
}

func TestDispatchHandlerReportsDenialAsToolError(t *testing.T) {
	reg := newTestRegistry(t)

	handler := dispatchHandler(reg, "delete_job", slog.Default())
	req := mcp.CallToolRequest{}
	req.Params.Name = "delete_job"
	req.Params.Arguments = map[string]any{"name": "web-app"}

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("denials must surface as tool errors, not protocol errors: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError result for disabled dangerous tier")
	}
}

func TestDispatchHandlerMissingArgument(t *testing.T) {
	reg := newTestRegistry(t)

	handler := dispatchHandler(reg, "get_job", slog.Default())
	req := mcp.CallToolRequest{}
	req.Params.Name = "get_job"
	req.Params.Arguments = map[string]any{}

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected IsError result for missing required argument")
	}
}
