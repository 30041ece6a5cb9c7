// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/foundriesio/apps-upgrader/context"
)

// webhookChannel posts an apprise compatible JSON document.
type webhookChannel struct {
	url    string
	name   string
	client *http.Client
}

type webhookPayload struct {
	Version string `json:"version"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func newWebhookChannel(u *url.URL) (*webhookChannel, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("notification url has no host: %s", redact(u))
	}
	target := *u
	if strings.EqualFold(u.Scheme, "jsons") {
		target.Scheme = "https"
	} else {
		target.Scheme = "http"
	}
	return &webhookChannel{
		url:    target.String(),
		name:   redact(u),
		client: &http.Client{},
	}, nil
}

func (c *webhookChannel) Name() string {
	return c.name
}

func (c *webhookChannel) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Version: "1.0",
		Title:   msg.Title,
		Message: msg.Body,
		Type:    "info",
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			context.CtxGetLog(ctx).Warn("failed to close webhook response body", "error", err)
		}
	}()

	if resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(buf)))
	}
	return nil
}
