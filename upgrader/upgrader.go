// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package upgrader

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/random"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/context"
	"github.com/foundriesio/apps-upgrader/policy"
)

var (
	ErrAuth    = errors.New("authentication failed")
	ErrListing = errors.New("failed to list apps")
)

const (
	defaultJobTimeout = 30 * time.Minute
	defaultPause      = time.Second
)

// Notifier is the fire-and-forget side channel for outcomes.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

type Options struct {
	NotifyOnSuccess bool
	DryRun          bool
	// JobTimeout bounds the wait for one upgrade job.
	JobTimeout time.Duration
	// Pause is slept after every upgrade so the appliance is not hammered.
	Pause time.Duration
	Clock clockwork.Clock
}

type Upgrader struct {
	client   apps.Client
	policy   policy.Policy
	notifier Notifier
	opts     Options
}

func New(client apps.Client, p policy.Policy, notifier Notifier, opts Options) *Upgrader {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	if opts.Pause < 0 {
		opts.Pause = 0
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Upgrader{client: client, policy: p, notifier: notifier, opts: opts}
}

// Run performs one pass over the appliance's apps. Only login and listing
// failures are returned as errors; each app's outcome ends up in the report.
func (u *Upgrader) Run(ctx context.Context) (Report, error) {
	ctx = context.CtxWithLogAttrs(ctx, "run_id", random.String(8))
	log := context.CtxGetLog(ctx)
	started := u.opts.Clock.Now()
	report := Report{}

	log.Info("authenticating with API key")
	if err := u.client.Login(ctx); err != nil {
		return report, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	log.Info("authentication successful")

	log.Info("fetching apps")
	list, err := u.client.ListApps(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrListing, err)
	}
	candidates := apps.Upgradable(list)
	report.Total = len(list)
	report.Candidates = len(candidates)
	log.Info("apps found", "total", len(list), "upgrade_available", len(candidates))

	for i, app := range candidates {
		if ctx.Err() != nil {
			return u.interrupted(ctx, report, started)
		}
		appCtx := context.CtxWithLogAttrs(ctx, "app", app.Name)
		appLog := context.CtxGetLog(appCtx)

		decision := policy.ShouldUpgrade(app, u.policy)
		if decision.Skipped() {
			if decision.Reason == policy.ReasonMissingName {
				appLog.Warn("skipping app with missing name", "id", app.Id, "state", app.State)
			} else {
				appLog.Info("skipping upgrade", "reason", decision.Reason, "state", app.State)
			}
			report.add(Result{App: app.Name, Skipped: true, SkipReason: decision.Reason})
			continue
		}

		if u.opts.DryRun {
			appLog.Info("would upgrade app (dry run)", "version", app.Version)
			report.add(Result{App: app.Name, Planned: true})
			continue
		}

		begin := u.opts.Clock.Now()
		out := u.upgrade(appCtx, app)
		report.add(Result{App: app.Name, Outcome: out, Duration: u.opts.Clock.Since(begin)})
		if ctx.Err() != nil {
			// The outcome reflects the interruption, not the app.
			appLog.Warn("upgrade interrupted", "outcome", out.Kind.String(), "reason", out.Reason)
			return u.interrupted(ctx, report, started)
		}
		u.announce(appCtx, app, out)

		if i < len(candidates)-1 && u.opts.Pause > 0 {
			select {
			case <-ctx.Done():
				return u.interrupted(ctx, report, started)
			case <-u.opts.Clock.After(u.opts.Pause):
			}
		}
	}

	report.Duration = u.opts.Clock.Since(started)
	log.Info("all app updates completed", "succeeded", report.Succeeded, "failed", report.Failed,
		"timed_out", report.TimedOut, "skipped", report.Skipped, "duration", report.Duration)
	return report, nil
}

func (u *Upgrader) interrupted(ctx context.Context, report Report, started time.Time) (Report, error) {
	context.CtxGetLog(ctx).Warn("run interrupted", "error", ctx.Err(), "processed", report.Processed())
	report.Duration = u.opts.Clock.Since(started)
	return report, ctx.Err()
}

// upgrade drives one app from submission to a terminal state. Nothing that
// happens here may escape to the loop.
func (u *Upgrader) upgrade(ctx context.Context, app apps.App) (out apps.Outcome) {
	log := context.CtxGetLog(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected panic while upgrading", "panic", r)
			out = apps.Failure(fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Info("upgrading app", "version", app.Version)
	job, err := u.client.UpgradeApp(ctx, app)
	if err != nil {
		log.Debug("upgrade submission failed", "error", err)
		return apps.OutcomeFromError(err)
	}
	log.Debug("upgrade job submitted", "job_id", job.Id)

	jobCtx, cancel := context.WithTimeout(ctx, u.opts.JobTimeout)
	defer cancel()
	return u.client.AwaitJob(jobCtx, job)
}

func (u *Upgrader) announce(ctx context.Context, app apps.App, out apps.Outcome) {
	log := context.CtxGetLog(ctx)
	switch out.Kind {
	case apps.Succeeded:
		log.Info(fmt.Sprintf("Upgrade of %s completed successfully", app.Name))
		if u.opts.NotifyOnSuccess {
			u.notifier.Notify(ctx, "App Updated", fmt.Sprintf("Successfully updated %s to the latest version", app.Name))
		}
	case apps.TimedOut:
		msg := fmt.Sprintf("Upgrade of %s timed out", app.Name)
		log.Error(msg, "reason", out.Reason)
		u.notifier.Notify(ctx, "Upgrade Timeout", msg)
	default:
		msg := fmt.Sprintf("Failed to upgrade %s: %s", app.Name, out.Reason)
		log.Error(msg)
		u.notifier.Notify(ctx, "Upgrade Failed", msg)
	}
}
