// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package jenkins

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Build is the detail view of one build.
type Build struct {
	Number            int    `json:"number"`
	URL               string `json:"url"`
	Result            string `json:"result"` // SUCCESS, FAILURE, ABORTED, ... ; empty while building
	Building          bool   `json:"building"`
	Duration          int64  `json:"duration"` // milliseconds
	EstimatedDuration int64  `json:"estimatedDuration"`
	Timestamp         int64  `json:"timestamp"` // epoch milliseconds
	DisplayName       string `json:"fullDisplayName"`
	Description       string `json:"description"`
	QueueID           int64  `json:"queueId"`
}

// BuildLog is one page of console output.
type BuildLog struct {
	Text    string `json:"text"`
	HasMore bool   `json:"hasMore"`
	Size    int64  `json:"size"` // byte offset for the next progressive poll
}

// buildAliases are the symbolic build selectors the Jenkins REST API
// itself understands.
var buildAliases = map[string]bool{
	"lastBuild":             true,
	"lastCompletedBuild":    true,
	"lastFailedBuild":       true,
	"lastStableBuild":       true,
	"lastSuccessfulBuild":   true,
	"lastUnstableBuild":     true,
	"lastUnsuccessfulBuild": true,
}

// parseBuildRef validates a build number or alias before any request.
func parseBuildRef(ref string) (string, error) {
	if buildAliases[ref] {
		return ref, nil
	}
	n, err := strconv.Atoi(ref)
	if err != nil || n <= 0 {
		return "", &ValidationError{Field: "build number", Reason: "must be a positive integer or a lastBuild-style alias"}
	}
	return strconv.Itoa(n), nil
}

// TriggerBuild starts a build, returning the queue item id Jenkins
// reports in the Location header (0 when absent). Parameterized jobs go
// through buildWithParameters when params are non-empty. The executor
// never retries this call at the transport layer, so a build cannot be
// triggered twice for one logical request.
func (c *Client) TriggerBuild(ctx context.Context, name string, params map[string]string, delaySec int) (int64, error) {
	path, err := ParseJobPath(name)
	if err != nil {
		return 0, err
	}
	if delaySec < 0 {
		return 0, &ValidationError{Field: "delay", Reason: "must not be negative"}
	}

	endpoint := path.URLPath() + "/build"
	query := url.Values{}
	var body []byte
	contentType := ""
	if len(params) > 0 {
		endpoint = path.URLPath() + "/buildWithParameters"
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		body = []byte(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	if delaySec > 0 {
		query.Set("delay", strconv.Itoa(delaySec)+"sec")
	}

	resp, err := c.do(ctx, apiRequest{
		method:      http.MethodPost,
		path:        endpoint,
		query:       query,
		body:        body,
		contentType: contentType,
		mutating:    true,
	})

	var queueID int64
	if err == nil {
		queueID = parseQueueID(resp.header.Get("Location"))
	}

	result, errMsg := auditResult(err)
	c.logAudit("trigger_build", path.String(), result, errMsg, map[string]any{
		"parameters": len(params),
		"queue_id":   queueID,
	})
	if err != nil {
		return 0, c.withJobSuggestions(ctx, name, err)
	}
	return queueID, nil
}

// parseQueueID extracts the item id from a ".../queue/item/123/" Location.
func parseQueueID(location string) int64 {
	if location == "" {
		return 0
	}
	trimmed := strings.TrimRight(location, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return 0
	}
	id, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// GetBuild fetches one build by number or alias.
func (c *Client) GetBuild(ctx context.Context, name, buildRef string) (*Build, error) {
	path, err := ParseJobPath(name)
	if err != nil {
		return nil, err
	}
	ref, err := parseBuildRef(buildRef)
	if err != nil {
		return nil, err
	}

	var build Build
	if err := c.getJSON(ctx, path.URLPath()+"/"+ref+"/api/json", nil, &build); err != nil {
		return nil, c.withJobSuggestions(ctx, name, err)
	}
	return &build, nil
}

// GetBuildLogs returns console output. In progressive mode it polls the
// progressiveText endpoint from the given byte offset and reports whether
// more output is pending; otherwise it returns the full console text.
func (c *Client) GetBuildLogs(ctx context.Context, name, buildRef string, start int64, progressive bool) (*BuildLog, error) {
	path, err := ParseJobPath(name)
	if err != nil {
		return nil, err
	}
	ref, err := parseBuildRef(buildRef)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, &ValidationError{Field: "start", Reason: "must not be negative"}
	}

	if !progressive {
		resp, err := c.do(ctx, apiRequest{
			method: http.MethodGet,
			path:   path.URLPath() + "/" + ref + "/consoleText",
		})
		if err != nil {
			return nil, c.withJobSuggestions(ctx, name, err)
		}
		return &BuildLog{
			Text: string(resp.body),
			Size: int64(len(resp.body)),
		}, nil
	}

	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   path.URLPath() + "/" + ref + "/logText/progressiveText",
		query:  url.Values{"start": {strconv.FormatInt(start, 10)}},
	})
	if err != nil {
		return nil, c.withJobSuggestions(ctx, name, err)
	}

	log := &BuildLog{
		Text:    string(resp.body),
		HasMore: strings.EqualFold(resp.header.Get("X-More-Data"), "true"),
	}
	if size, err := strconv.ParseInt(resp.header.Get("X-Text-Size"), 10, 64); err == nil {
		log.Size = size
	} else {
		// Jenkins omitted the header; advance by what we received.
		log.Size = start + int64(len(resp.body))
	}
	return log, nil
}

// StopBuild aborts a running build.
func (c *Client) StopBuild(ctx context.Context, name, buildRef string) error {
	path, err := ParseJobPath(name)
	if err != nil {
		return err
	}
	ref, err := parseBuildRef(buildRef)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     path.URLPath() + "/" + ref + "/stop",
		mutating: true,
	})

	result, errMsg := auditResult(err)
	c.logAudit("stop_build", path.String()+"#"+ref, result, errMsg, nil)
	if err != nil {
		return c.withJobSuggestions(ctx, name, err)
	}
	return nil
}
