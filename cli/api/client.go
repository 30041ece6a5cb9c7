// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"fmt"
	"time"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/cli/config"
	agent "github.com/foundriesio/apps-upgrader/config"
	"github.com/foundriesio/apps-upgrader/context"
)

const callTimeout = 30 * time.Second

// Connect opens an authenticated client for the CLI context. The caller owns
// the returned client and must Close it.
func Connect(ctx context.Context, appCtx config.Context) (apps.Client, error) {
	cfg := agent.Config{
		BaseUrl:     appCtx.URL,
		ApiKey:      appCtx.Token,
		SslVerify:   appCtx.VerifyTLS,
		Binding:     appCtx.ApiBinding(),
		CallTimeout: callTimeout,
	}
	client, err := cfg.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to authenticate with %s: %w", appCtx.URL, err)
	}
	return client, nil
}
