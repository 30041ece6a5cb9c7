// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foundriesio/apps-upgrader/apps/rest"
	"github.com/foundriesio/apps-upgrader/context"
	"github.com/foundriesio/apps-upgrader/policy"
)

var envNames = []string{
	"BASE_URL", "API_KEY", "APPRISE_URLS", "NOTIFY_ON_SUCCESS", "ONLY_UPDATE_STARTED_APPS",
	"EXCLUDE_APPS", "INCLUDE_APPS", "AUTO_CLEANUP_IMAGES", "SSL_VERIFY", "API_BINDING",
	"JOB_TIMEOUT", "CALL_TIMEOUT", "UPGRADE_PAUSE", "DRY_RUN", "PUSHGATEWAY_URL",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every variable the agent reads and restores them when the
// test ends.
func clearEnv(t *testing.T) {
	for _, name := range envNames {
		t.Setenv(name, "")
		require.Nil(t, os.Unsetenv(name))
	}
}

func validConfig() Config {
	return Config{
		BaseUrl:     "https://nas.local",
		ApiKey:      "1-abc",
		Binding:     BindingRpc,
		JobTimeout:  time.Minute,
		CallTimeout: time.Second,
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse(nil)
	require.Nil(t, err)
	require.Equal(t, BindingRpc, cfg.Binding)
	require.Equal(t, 30*time.Minute, cfg.JobTimeout)
	require.Equal(t, 60*time.Second, cfg.CallTimeout)
	require.Equal(t, time.Second, cfg.UpgradePause)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.False(t, cfg.SslVerify)
	require.False(t, cfg.NotifyOnSuccess)
}

func TestParseEnvAndFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "https://nas.local")
	t.Setenv("API_KEY", "1-abc")
	t.Setenv("EXCLUDE_APPS", " plex, ,sonarr ")
	t.Setenv("NOTIFY_ON_SUCCESS", "true")
	t.Setenv("JOB_TIMEOUT", "45m")
	t.Setenv("API_BINDING", "rpc")

	cfg, err := Parse([]string{"--api-binding", "rest", "--dry-run"})
	require.Nil(t, err)
	require.Equal(t, "https://nas.local", cfg.BaseUrl)
	require.Equal(t, BindingRest, cfg.Binding)
	require.True(t, cfg.NotifyOnSuccess)
	require.True(t, cfg.DryRun)
	require.Equal(t, 45*time.Minute, cfg.JobTimeout)
	require.Nil(t, cfg.Validate())

	p, err := cfg.Policy()
	require.Nil(t, err)
	require.Equal(t, []string{"plex", "sonarr"}, p.Exclude())
	require.Empty(t, p.Include())
}

func TestParseBadBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("SSL_VERIFY", "maybe")
	_, err := Parse(nil)
	require.ErrorContains(t, err, "SSL_VERIFY")
}

func TestValidate(t *testing.T) {
	require.Nil(t, validConfig().Validate())

	cfg := validConfig()
	cfg.ApiKey = ""
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	require.ErrorContains(t, err, "BASE_URL or API_KEY is not set")

	cfg = validConfig()
	cfg.Binding = "grpc"
	require.ErrorContains(t, cfg.Validate(), `unknown API_BINDING "grpc"`)

	cfg = validConfig()
	cfg.AppriseUrls = "json://hooks.local/x, mailto://ops@example.com"
	require.ErrorContains(t, cfg.Validate(), `unsupported notification scheme "mailto"`)

	cfg = validConfig()
	cfg.CallTimeout = 0
	require.ErrorContains(t, cfg.Validate(), "must be positive")
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.BaseUrl = ""
	cfg.Binding = "soap"
	err := cfg.Validate()
	require.ErrorContains(t, err, "BASE_URL or API_KEY is not set")
	require.ErrorContains(t, err, `unknown API_BINDING "soap"`)
}

func TestConflictingFiltersRejectedBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	cfg := validConfig()
	cfg.BaseUrl = srv.URL
	cfg.ExcludeApps = "plex"
	cfg.IncludeApps = "radarr"
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	require.ErrorIs(t, err, policy.ErrConflictingFilters)
	require.Equal(t, int32(0), hits.Load())
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	require.Nil(t, LoadDotenv(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.Nil(t, os.WriteFile(path, []byte("BASE_URL=https://from-file\nAPI_KEY=file-key\n"), 0o600))
	t.Setenv("API_KEY", "env-key")
	require.Nil(t, LoadDotenv(path))

	cfg, err := Parse(nil)
	require.Nil(t, err)
	require.Equal(t, "https://from-file", cfg.BaseUrl)
	require.Equal(t, "env-key", cfg.ApiKey)
}

func TestNotifier(t *testing.T) {
	cfg := validConfig()
	n, err := cfg.Notifier()
	require.Nil(t, err)
	require.False(t, n.Enabled())

	cfg.AppriseUrls = "json://hooks.local/x,bogus://nope"
	n, err = cfg.Notifier()
	require.ErrorContains(t, err, "unsupported notification scheme")
	require.True(t, n.Enabled())
}

func TestNewClient(t *testing.T) {
	cfg := validConfig()
	cfg.Binding = BindingRest
	client, err := cfg.NewClient(context.Background())
	require.Nil(t, err)
	require.IsType(t, &rest.Client{}, client)
	require.Nil(t, client.Close())

	cfg.BaseUrl = "nas.local"
	_, err = cfg.NewClient(context.Background())
	require.NotNil(t, err)
}

func TestSplitList(t *testing.T) {
	require.Nil(t, SplitList(""))
	require.Nil(t, SplitList(" , ,"))
	require.Equal(t, []string{"a", "b c", "d"}, SplitList("a, b c ,,d"))
}
