// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package jenkins

import (
	"net/url"
	"strings"
)

// JobPath is a folder-qualified job name as an ordered list of segments.
// "folder/sub/my-job" parses to ["folder", "sub", "my-job"] and renders
// to the Jenkins URL form "job/folder/job/sub/job/my-job". Every job
// operation goes through this one conversion.
type JobPath []string

// ParseJobPath validates a caller-supplied job name and splits it into
// segments. Job names may contain alphanumerics, '-', '_', '.' and '/'
// as the folder separator; empty and dot-only segments are rejected so
// names can never traverse outside the job tree.
func ParseJobPath(name string) (JobPath, error) {
	if name == "" {
		return nil, &ValidationError{Field: "job name", Reason: "must not be empty"}
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return nil, &ValidationError{Field: "job name", Reason: "must not start or end with '/'"}
	}

	segments := strings.Split(name, "/")
	for _, seg := range segments {
		if seg == "" {
			return nil, &ValidationError{Field: "job name", Reason: "contains an empty path segment"}
		}
		if seg == "." || seg == ".." {
			return nil, &ValidationError{Field: "job name", Reason: "contains a relative path segment"}
		}
		for _, r := range seg {
			if !isJobNameRune(r) {
				return nil, &ValidationError{Field: "job name", Reason: "may only contain alphanumerics, '-', '_', '.' and '/'"}
			}
		}
	}
	return JobPath(segments), nil
}

func isJobNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	default:
		return false
	}
}

// URLPath renders the Jenkins job/<seg>/job/<seg> URL form with each
// segment escaped.
func (p JobPath) URLPath() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString("job/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// ParentURLPath renders the URL form of the enclosing folder, which is
// empty for a top-level job.
func (p JobPath) ParentURLPath() string {
	if len(p) <= 1 {
		return ""
	}
	return JobPath(p[:len(p)-1]).URLPath()
}

// Leaf returns the final segment: the job's own name.
func (p JobPath) Leaf() string {
	return p[len(p)-1]
}

func (p JobPath) String() string {
	return strings.Join(p, "/")
}
