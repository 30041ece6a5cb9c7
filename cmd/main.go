// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/apps/rest"
	"github.com/foundriesio/apps-upgrader/apps/rpc"
	"github.com/foundriesio/apps-upgrader/cleanup"
	"github.com/foundriesio/apps-upgrader/config"
	"github.com/foundriesio/apps-upgrader/context"
	"github.com/foundriesio/apps-upgrader/notify"
	"github.com/foundriesio/apps-upgrader/upgrader"
)

const pushTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}

	var cfg config.Config
	p, err := config.NewParser(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	if err := p.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			p.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		reportParseError(context.Background(), err)
		p.Fail(err.Error())
	}

	log, err := context.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.CtxWithLog(context.Background(), log), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

// reportParseError sends a "Configuration Error" over the channels named in
// APPRISE_URLS, since the parsed configuration is not available.
func reportParseError(ctx context.Context, err error) {
	cfg := config.Config{AppriseUrls: os.Getenv("APPRISE_URLS")}
	notifier, _ := cfg.Notifier()
	notifier.Notify(ctx, "Configuration Error", err.Error())
}

// run performs one upgrade pass and returns the process exit status. Per-app
// failures do not change it; configuration and connectivity problems do.
func run(ctx context.Context, cfg config.Config) int {
	log := context.CtxGetLog(ctx)

	// Channels that parse are kept so a bad one can still be reported.
	notifier, _ := cfg.Notifier()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		notifier.Notify(ctx, "Configuration Error", err.Error())
		return 1
	}
	pol, _ := cfg.Policy()
	log.Info("starting apps upgrade run",
		"base_url", cfg.BaseUrl,
		"binding", cfg.Binding,
		"exclude", pol.Exclude(),
		"include", pol.Include(),
		"only_running", pol.OnlyRunning(),
		"dry_run", cfg.DryRun,
	)

	client, err := cfg.NewClient(ctx)
	if err != nil {
		fatal(ctx, cfg, notifier, upgrader.Report{}, err)
		return 1
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close API client", "error", err)
		}
	}()

	u := upgrader.New(client, pol, notifier, upgrader.Options{
		NotifyOnSuccess: cfg.NotifyOnSuccess,
		DryRun:          cfg.DryRun,
		JobTimeout:      cfg.JobTimeout,
		Pause:           cfg.UpgradePause,
	})
	report, err := u.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("run interrupted, skipping image cleanup", "processed", report.Processed())
			pushMetrics(ctx, cfg, report, true)
			return 1
		}
		fatal(ctx, cfg, notifier, report, err)
		return 1
	}
	pushMetrics(ctx, cfg, report, false)

	cleanup.New(notifier, cleanup.Options{Enabled: cfg.AutoCleanupImages}).Run(ctx)
	log.Info("Done")
	return 0
}

func fatal(ctx context.Context, cfg config.Config, notifier *notify.Notifier, report upgrader.Report, err error) {
	msg := fatalMessage(cfg.BaseUrl, err)
	context.CtxGetLog(ctx).Error(msg, "error", err)
	notifier.Notify(ctx, "Error", msg)
	pushMetrics(ctx, cfg, report, true)
}

func fatalMessage(baseUrl string, err error) string {
	var remote *apps.RemoteError
	switch {
	case errors.Is(err, rpc.ErrAuthFailed), errors.Is(err, rest.ErrAuthFailed):
		return fmt.Sprintf("Authentication failed for %s", baseUrl)
	case errors.As(err, &remote):
		return fmt.Sprintf("Appliance API error at %s: %s", baseUrl, remote.Message)
	}
	return fmt.Sprintf("Failed to connect to appliance API at %s: %s", baseUrl, err)
}

func pushMetrics(ctx context.Context, cfg config.Config, report upgrader.Report, failedRun bool) {
	if cfg.PushgatewayUrl == "" {
		return
	}
	// The run context may already be cancelled; metrics still go out.
	pushCtx, cancel := context.WithTimeout(context.CtxWithLog(context.Background(), context.CtxGetLog(ctx)), pushTimeout)
	defer cancel()
	if err := upgrader.PushReport(pushCtx, cfg.PushgatewayUrl, report, failedRun); err != nil {
		context.CtxGetLog(ctx).Warn("failed to push run metrics", "error", err)
	}
}
