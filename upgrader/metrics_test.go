// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package upgrader

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/apps-upgrader/context"
)

func TestReportCollectors(t *testing.T) {
	report := Report{Candidates: 5, Succeeded: 2, Failed: 1, Skipped: 1, Planned: 1, Duration: 90 * time.Second}
	reg, err := reportCollectors(report, false)
	require.Nil(t, err)

	expected := `
# HELP apps_upgrader_apps Number of apps per result in the last run
# TYPE apps_upgrader_apps gauge
apps_upgrader_apps{result="candidate"} 5
apps_upgrader_apps{result="failed"} 1
apps_upgrader_apps{result="planned"} 1
apps_upgrader_apps{result="skipped"} 1
apps_upgrader_apps{result="succeeded"} 2
apps_upgrader_apps{result="timed_out"} 0
# HELP apps_upgrader_last_run_success 1 when the last run could list and process apps, 0 otherwise
# TYPE apps_upgrader_last_run_success gauge
apps_upgrader_last_run_success 1
# HELP apps_upgrader_run_duration_seconds Duration of the last run in seconds
# TYPE apps_upgrader_run_duration_seconds gauge
apps_upgrader_run_duration_seconds 90
`
	require.Nil(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}

func TestPushReport(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		buf, _ := io.ReadAll(r.Body)
		body = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.Nil(t, PushReport(context.Background(), srv.URL, Report{}, true))
	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/metrics/job/apps_upgrader", path)
	require.NotEmpty(t, body)

	srv.Close()
	require.ErrorContains(t, PushReport(context.Background(), srv.URL, Report{}, true), "failed to push metrics")
}
