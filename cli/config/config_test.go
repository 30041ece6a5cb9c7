// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "appsctl.yaml")
	cfg := &Config{
		ActiveContext: "home",
		Contexts: map[string]Context{
			"home": {URL: "https://nas.local", Token: "1-abc", Binding: "rest", VerifyTLS: true},
			"lab":  {URL: "http://10.0.0.5"},
		},
	}
	require.Nil(t, SaveConfig(path, cfg))

	st, err := os.Stat(path)
	require.Nil(t, err)
	require.Equal(t, os.FileMode(0600), st.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.Nil(t, err)
	require.Equal(t, cfg, loaded)

	ctx, err := loaded.GetContext("")
	require.Nil(t, err)
	require.Equal(t, "rest", ctx.Binding)

	_, err = loaded.GetContext("lab")
	require.EqualError(t, err, "context 'lab' has no API key configured")
	_, err = loaded.GetContext("office")
	require.EqualError(t, err, "context 'office' not found")

	loaded.ActiveContext = ""
	_, err = loaded.GetContext("")
	require.EqualError(t, err, "no default context set")
}

func TestUpsert(t *testing.T) {
	var cfg Config
	cfg.Upsert("home", Context{URL: "https://nas.local", Token: "1"}, false)
	require.Equal(t, "home", cfg.ActiveContext)
	require.Equal(t, "rpc", cfg.Contexts["home"].ApiBinding())

	cfg.Upsert("lab", Context{URL: "http://10.0.0.5", Token: "2", Binding: "rest"}, false)
	require.Equal(t, "home", cfg.ActiveContext)
	require.Equal(t, "rest", cfg.Contexts["lab"].ApiBinding())

	cfg.Upsert("lab", Context{URL: "http://10.0.0.6", Token: "3"}, true)
	require.Equal(t, "lab", cfg.ActiveContext)
	require.Len(t, cfg.Contexts, 2)
}

func TestGetContextUnknownBinding(t *testing.T) {
	cfg := Config{Contexts: map[string]Context{"x": {URL: "https://nas.local", Token: "1", Binding: "grpc"}}}
	_, err := cfg.GetContext("x")
	require.EqualError(t, err, "context 'x' has unknown binding 'grpc'")
}
