// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/context"
)

type apiContextKey int

const (
	contextKey apiContextKey = iota
)

func CtxGetApi(ctx context.Context) apps.Client {
	return ctx.Value(contextKey).(apps.Client)
}

func CtxWithApi(ctx context.Context, api apps.Client) context.Context {
	return context.WithValue(ctx, contextKey, api)
}
