package jenkins

import (
	"errors"
	"testing"
)

func TestParseJobPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string // URLPath output, empty means expect error
		wantErr bool
	}{
		{"simple", "my-job", "job/my-job", false},
		{"folder qualified", "folder/sub/my-job", "job/folder/job/sub/job/my-job", false},
		{"dots allowed", "release-1.2_rc", "job/release-1.2_rc", false},
		{"empty", "", "", true},
		{"leading slash", "/job", "", true},
		{"trailing slash", "job/", "", true},
		{"double slash", "a//b", "", true},
		{"dotdot traversal", "../etc/passwd", "", true},
		{"dot segment", "a/./b", "", true},
		{"space", "my job", "", true},
		{"shell metachars", "job;rm", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseJobPath(tt.input)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJobPath(%q): %v", tt.input, err)
			}
			if got := p.URLPath(); got != tt.want {
				t.Errorf("URLPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJobPathParentAndLeaf(t *testing.T) {
	p, err := ParseJobPath("folder/sub/my-job")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.ParentURLPath(); got != "job/folder/job/sub" {
		t.Errorf("ParentURLPath() = %q", got)
	}
	if got := p.Leaf(); got != "my-job" {
		t.Errorf("Leaf() = %q", got)
	}

	top, _ := ParseJobPath("solo")
	if got := top.ParentURLPath(); got != "" {
		t.Errorf("top-level ParentURLPath() = %q, want empty", got)
	}
}
