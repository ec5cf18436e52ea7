package tool

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jenkmcp/jenkmcp/internal/audit"
)

func testTool(name string, tier Tier, called *int) *Tool {
	return &Tool{
		Name: name,
		Tier: tier,
		Handler: func(ctx context.Context, args Args) (string, error) {
			*called++
			return "ok", nil
		},
	}
}

func TestDispatchRunsHandler(t *testing.T) {
	reg := NewRegistry("tester", nil, nil)
	var called int
	reg.Register(testTool("list_jobs", TierRead, &called))

	out, err := reg.Dispatch(context.Background(), "list_jobs", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "ok" || called != 1 {
		t.Errorf("out=%q called=%d", out, called)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry("tester", nil, nil)
	if _, err := reg.Dispatch(context.Background(), "nope", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestDangerousTierDeniedByDefault(t *testing.T) {
	log, err := audit.NewLogger(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry("tester", log, nil)
	var called int
	reg.Register(testTool("delete_job", TierDangerous, &called))

	_, err = reg.Dispatch(context.Background(), "delete_job", nil)
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("want DeniedError, got %v", err)
	}
	if called != 0 {
		t.Error("handler must not run when tier is disabled")
	}

	entries, err := audit.Tail(log.Path(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Result != audit.ResultDenied {
		t.Errorf("entries = %+v, want one denied entry", entries)
	}
	if entries[0].Action != "delete_job" {
		t.Errorf("audit action = %q", entries[0].Action)
	}
}

func TestSetTierEnablesDangerous(t *testing.T) {
	reg := NewRegistry("tester", nil, nil)
	var called int
	reg.Register(testTool("restart_agent", TierDangerous, &called))

	reg.SetTier(TierDangerous, true)
	if _, err := reg.Dispatch(context.Background(), "restart_agent", nil); err != nil {
		t.Fatal(err)
	}
	if called != 1 {
		t.Errorf("called = %d", called)
	}
}

func TestAllSorted(t *testing.T) {
	reg := NewRegistry("tester", nil, nil)
	var n int
	reg.Register(testTool("zeta", TierRead, &n))
	reg.Register(testTool("alpha", TierRead, &n))
	reg.Register(testTool("mid", TierRead, &n))

	all := reg.All()
	if len(all) != 3 || all[0].Name != "alpha" || all[2].Name != "zeta" {
		t.Errorf("All() order wrong: %v", []string{all[0].Name, all[1].Name, all[2].Name})
	}
}

func TestParseTier(t *testing.T) {
	for _, want := range []Tier{TierRead, TierBuild, TierWrite, TierDangerous} {
		got, err := ParseTier(want.String())
		if err != nil || got != want {
			t.Errorf("ParseTier(%q) = %v, %v", want.String(), got, err)
		}
	}
	if _, err := ParseTier("root"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestArgsAccessors(t *testing.T) {
	args := Args{
		"name":  "web-app",
		"count": float64(7), // JSON numbers decode as float64
		"all":   true,
	}

	if s, err := args.String("name"); err != nil || s != "web-app" {
		t.Errorf("String = %q, %v", s, err)
	}
	if _, err := args.String("missing"); err == nil {
		t.Error("expected error for missing string")
	}
	if n, err := args.Int("count"); err != nil || n != 7 {
		t.Errorf("Int = %d, %v", n, err)
	}
	if n := args.IntOr("missing", 3); n != 3 {
		t.Errorf("IntOr = %d", n)
	}
	if !args.BoolOr("all", false) {
		t.Error("BoolOr lost value")
	}
	if args.StringOr("missing", "dflt") != "dflt" {
		t.Error("StringOr default not applied")
	}
}
