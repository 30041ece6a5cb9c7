// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package apps

import "context"

// Client is the appliance apps API as seen by the upgrader. The rpc and rest
// packages provide the two bindings.
type Client interface {
	Login(ctx context.Context) error
	ListApps(ctx context.Context) ([]App, error)
	// UpgradeApp submits an upgrade. An error means no job exists to await.
	UpgradeApp(ctx context.Context, app App) (Job, error)
	// AwaitJob blocks until the job ends or ctx expires.
	AwaitJob(ctx context.Context, job Job) Outcome
	Close() error
}
