// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package jenkins

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jenkmcp/jenkmcp/internal/session"
)

// ServerInfo is the controller's identity.
type ServerInfo struct {
	Version         string `json:"version"` // from the X-Jenkins header
	Mode            string `json:"mode"`
	NodeName        string `json:"nodeName"`
	NodeDescription string `json:"nodeDescription"`
	NumExecutors    int    `json:"numExecutors"`
	QuietingDown    bool   `json:"quietingDown"`
}

// GetVersion returns the root api/json view plus the version Jenkins
// reports in its X-Jenkins response header.
func (c *Client) GetVersion(ctx context.Context) (*ServerInfo, error) {
	resp, err := c.do(ctx, apiRequest{method: http.MethodGet, path: "api/json"})
	if err != nil {
		return nil, err
	}

	var info ServerInfo
	if resp.isJSON() {
		_ = json.Unmarshal(resp.body, &info)
	}
	info.Version = resp.header.Get("X-Jenkins")
	return &info, nil
}

// WhoAmI returns the identity Jenkins resolves for the client.
func (c *Client) WhoAmI(ctx context.Context) (*session.Identity, error) {
	return c.session.WhoAmI(ctx)
}

// TestAuthentication reports whether Jenkins considers the configured
// credentials authenticated.
func (c *Client) TestAuthentication(ctx context.Context) (bool, error) {
	return c.session.TestAuthentication(ctx)
}

const administerAuthority = "administer"

// RequireAdmin checks that the caller holds the administer authority.
// Authorities are queried fresh per operation, never cached across calls.
func (c *Client) RequireAdmin(ctx context.Context) error {
	id, err := c.WhoAmI(ctx)
	if err != nil {
		return err
	}
	if !id.Authenticated {
		return &AuthenticationError{Identity: id.Name}
	}
	for _, a := range id.Authorities {
		if strings.EqualFold(a, administerAuthority) ||
			strings.EqualFold(a, "hudson.model.Hudson.Administer") {
			return nil
		}
	}
	return &AuthorizationError{User: id.Name, Authority: administerAuthority}
}
