// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package jenkins

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// JobSummary is one row of the job list.
type JobSummary struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Color     string `json:"color"`
	Buildable bool   `json:"buildable"`
}

// Job is the detail view of a single job.
type Job struct {
	Name            string     `json:"name"`
	FullName        string     `json:"fullName"`
	URL             string     `json:"url"`
	Description     string     `json:"description"`
	Buildable       bool       `json:"buildable"`
	Color           string     `json:"color"`
	InQueue         bool       `json:"inQueue"`
	NextBuildNumber int        `json:"nextBuildNumber"`
	LastBuild       *BuildRef  `json:"lastBuild"`
	HealthReport    []Health   `json:"healthReport"`
	Builds          []BuildRef `json:"builds"`
}

// BuildRef is a lightweight pointer to a build.
type BuildRef struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// Health is one Jenkins health report line.
type Health struct {
	Description string `json:"description"`
	Score       int    `json:"score"`
}

// ListJobs returns the top-level job list. An empty Jenkins returns an
// empty slice, never an error.
func (c *Client) ListJobs(ctx context.Context) ([]JobSummary, error) {
	var result struct {
		Jobs []JobSummary `json:"jobs"`
	}
	query := url.Values{"tree": {"jobs[name,url,color,buildable]"}}
	if err := c.getJSON(ctx, "api/json", query, &result); err != nil {
		return nil, err
	}
	if result.Jobs == nil {
		result.Jobs = []JobSummary{}
	}
	return result.Jobs, nil
}

// GetJob fetches the detail view of a job, folder-qualified names allowed.
func (c *Client) GetJob(ctx context.Context, name string) (*Job, error) {
	path, err := ParseJobPath(name)
	if err != nil {
		return nil, err
	}

	var job Job
	if err := c.getJSON(ctx, path.URLPath()+"/api/json", nil, &job); err != nil {
		return nil, c.withJobSuggestions(ctx, name, err)
	}
	return &job, nil
}

// GetJobConfig returns the job's config.xml as submitted.
func (c *Client) GetJobConfig(ctx context.Context, name string) (string, error) {
	path, err := ParseJobPath(name)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   path.URLPath() + "/config.xml",
	})
	if err != nil {
		return "", c.withJobSuggestions(ctx, name, err)
	}
	return string(resp.body), nil
}

// CreateJob creates a job from config XML. For folder-qualified names the
// job is created inside its parent folder, which must already exist.
func (c *Client) CreateJob(ctx context.Context, name, configXML string) error {
	path, err := ParseJobPath(name)
	if err != nil {
		return err
	}

	endpoint := "createItem"
	if parent := path.ParentURLPath(); parent != "" {
		endpoint = parent + "/createItem"
	}

	_, err = c.do(ctx, apiRequest{
		method:      http.MethodPost,
		path:        endpoint,
		query:       url.Values{"name": {path.Leaf()}},
		body:        []byte(configXML),
		contentType: "application/xml",
		mutating:    true,
	})

	result, errMsg := auditResult(err)
	c.logAudit("create_job", path.String(), result, errMsg, nil)
	return err
}

// UpdateJob replaces an existing job's config XML.
func (c *Client) UpdateJob(ctx context.Context, name, configXML string) error {
	path, err := ParseJobPath(name)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, apiRequest{
		method:      http.MethodPost,
		path:        path.URLPath() + "/config.xml",
		body:        []byte(configXML),
		contentType: "application/xml",
		mutating:    true,
	})

	result, errMsg := auditResult(err)
	c.logAudit("update_job", path.String(), result, errMsg, nil)
	if err != nil {
		return c.withJobSuggestions(ctx, name, err)
	}
	return nil
}

// DeleteJob removes a job.
func (c *Client) DeleteJob(ctx context.Context, name string) error {
	path, err := ParseJobPath(name)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     path.URLPath() + "/doDelete",
		mutating: true,
	})

	result, errMsg := auditResult(err)
	c.logAudit("delete_job", path.String(), result, errMsg, nil)
	if err != nil {
		return c.withJobSuggestions(ctx, name, err)
	}
	return nil
}

const maxJobSuggestions = 5

// withJobSuggestions decorates a job 404 with a bounded did-you-mean list
// drawn from the live job list. Falls back to the bare error when the
// listing call itself fails.
func (c *Client) withJobSuggestions(ctx context.Context, name string, err error) error {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return err
	}

	nf.Resource = "job " + name
	jobs, listErr := c.ListJobs(ctx)
	if listErr != nil {
		return nf
	}

	needle := strings.ToLower(lastSegment(name))
	var matches, rest []string
	for _, j := range jobs {
		if strings.Contains(strings.ToLower(j.Name), needle) {
			matches = append(matches, j.Name)
		} else {
			rest = append(rest, j.Name)
		}
	}
	suggestions := append(matches, rest...)
	if len(suggestions) > maxJobSuggestions {
		suggestions = suggestions[:maxJobSuggestions]
	}
	nf.Suggestions = suggestions
	return nf
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
