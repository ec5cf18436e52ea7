// Copyright 2026 The jenkmcp Authors
// SPDX-License-Identifier: Apache-2.0

package jenkins

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// QueueItem is one pending build request not yet assigned to an executor.
type QueueItem struct {
	ID           int64  `json:"id"`
	Why          string `json:"why"`
	Blocked      bool   `json:"blocked"`
	Buildable    bool   `json:"buildable"`
	Stuck        bool   `json:"stuck"`
	InQueueSince int64  `json:"inQueueSince"` // epoch milliseconds
	Task         struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"task"`
}

// GetQueue returns the current build queue.
func (c *Client) GetQueue(ctx context.Context) ([]QueueItem, error) {
	var result struct {
		Items []QueueItem `json:"items"`
	}
	if err := c.getJSON(ctx, "queue/api/json", nil, &result); err != nil {
		return nil, err
	}
	if result.Items == nil {
		result.Items = []QueueItem{}
	}
	return result.Items, nil
}

// CancelQueueItem removes a pending item from the queue.
func (c *Client) CancelQueueItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "queue item id", Reason: "must be a positive integer"}
	}

	_, err := c.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "queue/cancelItem",
		query:    url.Values{"id": {strconv.FormatInt(id, 10)}},
		mutating: true,
	})

	result, errMsg := auditResult(err)
	c.logAudit("cancel_queue_item", strconv.FormatInt(id, 10), result, errMsg, nil)
	return err
}
