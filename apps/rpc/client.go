// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package rpc talks to the appliance over its websocket JSON-RPC 2.0 API.
package rpc

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/context"
)

const (
	endpointPath        = "/api/current"
	defaultCallTimeout  = 60 * time.Second
	defaultPollInterval = 2 * time.Second
	writeTimeout        = 10 * time.Second
)

var (
	ErrAuthFailed = errors.New("authentication rejected by appliance")
	errClosed     = errors.New("connection closed")
)

type Options struct {
	ApiKey       string
	VerifyTLS    bool
	CallTimeout  time.Duration
	PollInterval time.Duration
	Clock        clockwork.Clock
}

type Client struct {
	opts Options
	conn *websocket.Conn

	nextId  atomic.Int64
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan response
	done    chan struct{}
	readErr error
}

var _ apps.Client = (*Client)(nil)

// Endpoint rewrites an http(s) base URL into the websocket API endpoint.
func Endpoint(baseUrl string) (string, error) {
	u, err := url.Parse(baseUrl)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base url %q: missing host", baseUrl)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: endpointPath}).String(), nil
}

// Dial opens the websocket connection. Nothing is authenticated until Login.
func Dial(ctx context.Context, baseUrl string, opts Options) (*Client, error) {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	endpoint, err := Endpoint(baseUrl)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: opts.CallTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: !opts.VerifyTLS},
	}
	log := context.CtxGetLog(ctx)
	log.Info("connecting to appliance API", "endpoint", endpoint)
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	c := &Client{
		opts:    opts,
		conn:    conn,
		pending: make(map[int64]chan response),
		done:    make(chan struct{}),
	}
	go c.readLoop(log)
	return c, nil
}

func (c *Client) Login(ctx context.Context) error {
	var ok bool
	if err := c.Call(ctx, "auth.login_with_api_key", []any{c.opts.ApiKey}, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}
	return nil
}

func (c *Client) ListApps(ctx context.Context) ([]apps.App, error) {
	var list []apps.App
	if err := c.Call(ctx, "app.query", []any{}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) UpgradeApp(ctx context.Context, app apps.App) (apps.Job, error) {
	var jobId int64
	if err := c.Call(ctx, "app.upgrade", []any{app.Name}, &jobId); err != nil {
		return apps.Job{}, err
	}
	return apps.Job{Id: jobId, App: app.Name}, nil
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Call performs one JSON-RPC request and decodes the result into result,
// which may be nil.
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	id := c.nextId.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, err)
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if params == nil {
		params = []any{}
	}
	req := request{JsonRpc: "2.0", Id: id, Method: method, Params: params}
	if err := c.write(req); err != nil {
		return fmt.Errorf("%s: failed to send request: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error.remote())
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%s: unexpected result: %w", method, err)
		}
		return nil
	case <-c.done:
		return fmt.Errorf("%s: %w", method, c.closedErr())
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.opts.Clock.After(c.opts.CallTimeout):
		return fmt.Errorf("%s: no answer after %s: %w", method, c.opts.CallTimeout, apps.ErrTimeout)
	}
}

func (c *Client) write(req request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(req)
}

func (c *Client) readLoop(log *slog.Logger) {
	var err error
	for {
		var resp response
		if err = c.conn.ReadJSON(&resp); err != nil {
			break
		}
		if resp.Id == nil {
			// Server side events are not used.
			log.Debug("ignoring notification", "method", resp.Method)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[*resp.Id]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}

	c.mu.Lock()
	c.readErr = fmt.Errorf("%w: %w", errClosed, err)
	c.mu.Unlock()
	close(c.done)
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	return errClosed
}
