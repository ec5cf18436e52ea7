// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package jenkins

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Node is one build agent (or the controller itself).
type Node struct {
	DisplayName        string `json:"displayName"`
	Description        string `json:"description"`
	NumExecutors       int    `json:"numExecutors"`
	Idle               bool   `json:"idle"`
	Offline            bool   `json:"offline"`
	TemporarilyOffline bool   `json:"temporarilyOffline"`
	OfflineCauseReason string `json:"offlineCauseReason"`
	LaunchSupported    bool   `json:"launchSupported"`
}

// builtInNodeName is the URL segment Jenkins uses for the controller.
const builtInNodeName = "(built-in)"

// validateNodeName rejects names that could escape the computer/ URL
// space. Jenkins node names never contain slashes.
func validateNodeName(name string) error {
	if name == "" {
		return nil // empty resolves to the built-in node
	}
	if strings.ContainsAny(name, "/\\") {
		return &ValidationError{Field: "node name", Reason: "must not contain path separators"}
	}
	return nil
}

func nodeURLSegment(name string) string {
	if name == "" {
		name = builtInNodeName
	}
	return url.PathEscape(name)
}

// ListNodes returns all nodes known to the controller.
func (c *Client) ListNodes(ctx context.Context) ([]Node, error) {
	var result struct {
		Computer []Node `json:"computer"`
	}
	if err := c.getJSON(ctx, "computer/api/json", nil, &result); err != nil {
		return nil, err
	}
	if result.Computer == nil {
		result.Computer = []Node{}
	}
	return result.Computer, nil
}

// GetNodeStatus fetches one node; an empty name means the built-in node.
func (c *Client) GetNodeStatus(ctx context.Context, name string) (*Node, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}

	var node Node
	err := c.getJSON(ctx, "computer/"+nodeURLSegment(name)+"/api/json", nil, &node)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// DisconnectNode drops the agent channel. The offline message shows up in
// the Jenkins UI next to the node.
func (c *Client) DisconnectNode(ctx context.Context, name, message string) error {
	if err := validateNodeName(name); err != nil {
		return err
	}

	_, err := c.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "computer/" + nodeURLSegment(name) + "/doDisconnect",
		query:    url.Values{"offlineMessage": {message}},
		mutating: true,
	})
	return err
}

// LaunchNodeAgent asks the controller to (re)launch the agent process.
func (c *Client) LaunchNodeAgent(ctx context.Context, name string) error {
	if err := validateNodeName(name); err != nil {
		return err
	}

	_, err := c.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "computer/" + nodeURLSegment(name) + "/launchSlaveAgent",
		mutating: true,
	})
	return err
}

// RunNodeScript executes a Groovy script on the given node through the
// script console and returns its output. An empty name targets the
// controller's own script console.
func (c *Client) RunNodeScript(ctx context.Context, name, script string) (string, error) {
	if err := validateNodeName(name); err != nil {
		return "", err
	}
	if strings.TrimSpace(script) == "" {
		return "", &ValidationError{Field: "script", Reason: "must not be empty"}
	}

	endpoint := "scriptText"
	if name != "" {
		endpoint = "computer/" + nodeURLSegment(name) + "/scriptText"
	}

	form := url.Values{"script": {script}}
	resp, err := c.do(ctx, apiRequest{
		method:      http.MethodPost,
		path:        endpoint,
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		mutating:    true,
	})
	if err != nil {
		return "", err
	}
	return string(resp.body), nil
}
