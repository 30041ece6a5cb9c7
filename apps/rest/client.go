// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package rest talks to the appliance over its versioned REST API.
package rest

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/context"
)

const (
	apiPrefix          = "/api/v2.0"
	defaultCallTimeout = 60 * time.Second
	maxErrorBody       = 4096
)

var ErrAuthFailed = errors.New("authentication rejected by appliance")

type Options struct {
	ApiKey      string
	VerifyTLS   bool
	CallTimeout time.Duration
}

type Client struct {
	url         string
	callTimeout time.Duration
	http        *http.Client
}

var _ apps.Client = (*Client)(nil)

// New returns a client for baseUrl. Every request carries the API key as a
// bearer token.
func New(baseUrl string, opts Options) (*Client, error) {
	if !strings.HasPrefix(baseUrl, "http://") && !strings.HasPrefix(baseUrl, "https://") {
		return nil, fmt.Errorf("invalid base url %q: expected http(s)://", baseUrl)
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = &tls.Config{InsecureSkipVerify: !opts.VerifyTLS}

	return &Client{
		url:         strings.TrimRight(baseUrl, "/") + apiPrefix,
		callTimeout: opts.CallTimeout,
		http: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.ApiKey}),
				Base:   base,
			},
		},
	}, nil
}

func (c *Client) Login(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	status, body, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrAuthFailed, status)
	case status != http.StatusOK:
		return statusError(status, body)
	}
	return nil
}

func (c *Client) ListApps(ctx context.Context) ([]apps.App, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	status, body, err := c.do(ctx, http.MethodGet, "/app", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status, body)
	}
	var list []apps.App
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("unexpected app list: %w", err)
	}
	return list, nil
}

// UpgradeApp asks for the upgrade job. Any status but 200 means the job was
// not created.
func (c *Client) UpgradeApp(ctx context.Context, app apps.App) (apps.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	status, body, err := c.do(ctx, http.MethodPost, "/app/upgrade", map[string]string{"app_name": app.Key()})
	if err != nil {
		return apps.Job{}, err
	}
	if status != http.StatusOK {
		return apps.Job{}, statusError(status, body)
	}
	var jobId int64
	if err := json.Unmarshal(body, &jobId); err != nil {
		return apps.Job{}, fmt.Errorf("unexpected job id %q: %w", strings.TrimSpace(string(body)), err)
	}
	return apps.Job{Id: jobId, App: app.Name}, nil
}

// AwaitJob blocks in the appliance's job_wait call; the status code decides
// the outcome.
func (c *Client) AwaitJob(ctx context.Context, job apps.Job) apps.Outcome {
	status, body, err := c.do(ctx, http.MethodPost, "/core/job_wait", job.Id)
	if err != nil {
		return apps.OutcomeFromError(err)
	}
	if status != http.StatusOK {
		return apps.OutcomeFromError(statusError(status, body))
	}
	return apps.Success()
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, resource string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+resource, reader)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, resource, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			context.CtxGetLog(ctx).Warn("failed to close response body", "error", err)
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%s %s: failed to read response: %w", method, resource, err)
	}
	return resp.StatusCode, body, nil
}

// statusError turns an unsuccessful response into a remote error. The
// appliance answers with a JSON object carrying a message when it can.
func statusError(status int, body []byte) error {
	var parsed struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		msg = parsed.Message
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &apps.RemoteError{Code: status, Message: fmt.Sprintf("status %d: %s", status, msg)}
}
