// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package upgrader

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/foundriesio/apps-upgrader/context"
)

const metricsJob = "apps_upgrader"

// reportCollectors turns a run report into gauges. A fresh registry is built
// per push since the process only ever runs once.
func reportCollectors(report Report, failedRun bool) (*prometheus.Registry, error) {
	results := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "apps_upgrader",
			Name:      "apps",
			Help:      "Number of apps per result in the last run",
		},
		[]string{"result"},
	)
	results.WithLabelValues("candidate").Set(float64(report.Candidates))
	results.WithLabelValues("succeeded").Set(float64(report.Succeeded))
	results.WithLabelValues("failed").Set(float64(report.Failed))
	results.WithLabelValues("timed_out").Set(float64(report.TimedOut))
	results.WithLabelValues("skipped").Set(float64(report.Skipped))
	results.WithLabelValues("planned").Set(float64(report.Planned))

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "apps_upgrader",
		Name:      "run_duration_seconds",
		Help:      "Duration of the last run in seconds",
	})
	duration.Set(report.Duration.Seconds())

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "apps_upgrader",
		Name:      "last_run_success",
		Help:      "1 when the last run could list and process apps, 0 otherwise",
	})
	if !failedRun {
		lastRun.Set(1)
	}

	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{results, duration, lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// PushReport sends the run's metrics to a Prometheus Pushgateway.
func PushReport(ctx context.Context, gatewayUrl string, report Report, failedRun bool) error {
	reg, err := reportCollectors(report, failedRun)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := push.New(gatewayUrl, metricsJob).Gatherer(reg).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayUrl, err)
	}
	return nil
}
