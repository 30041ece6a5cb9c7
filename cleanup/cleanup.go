// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package cleanup prunes unused docker images once the upgrades are done.
package cleanup

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/foundriesio/apps-upgrader/context"
)

const (
	defaultDocker       = "docker"
	defaultCheckTimeout = 10 * time.Second
	defaultPruneTimeout = 5 * time.Minute
	waitDelay           = 2 * time.Second
)

type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

type Options struct {
	Enabled bool
	// Docker is the CLI to run, "docker" from PATH by default.
	Docker       string
	CheckTimeout time.Duration
	PruneTimeout time.Duration
}

type Status int

const (
	Disabled Status = iota
	Unavailable
	Pruned
	PruneFailed
)

type Cleaner struct {
	notifier Notifier
	opts     Options
}

func New(notifier Notifier, opts Options) *Cleaner {
	if opts.Docker == "" {
		opts.Docker = defaultDocker
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaultCheckTimeout
	}
	if opts.PruneTimeout <= 0 {
		opts.PruneTimeout = defaultPruneTimeout
	}
	return &Cleaner{notifier: notifier, opts: opts}
}

// Run checks the docker daemon and prunes every unused image. Problems are
// logged and notified; the returned status is informational only.
func (c *Cleaner) Run(ctx context.Context) Status {
	log := context.CtxGetLog(ctx)
	if !c.opts.Enabled {
		log.Info("docker image cleanup is disabled")
		return Disabled
	}

	log.Info("checking docker daemon availability")
	if _, err := c.docker(ctx, c.opts.CheckTimeout, "info"); err != nil {
		var msg string
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			msg = "Docker cleanup enabled but Docker CLI is not installed"
		case errors.Is(err, context.DeadlineExceeded):
			msg = "Docker cleanup enabled but Docker daemon check timed out. Make sure the Docker socket is mounted at /var/run/docker.sock"
		case errors.As(err, &exitErr):
			msg = "Docker cleanup enabled but Docker daemon is not accessible. Make sure the Docker socket is mounted at /var/run/docker.sock"
		default:
			msg = fmt.Sprintf("Docker cleanup enabled but failed to check Docker daemon: %s", err)
		}
		log.Error(msg, "error", err)
		c.notifier.Notify(ctx, "Docker Cleanup Warning", msg)
		return Unavailable
	}

	log.Info("docker daemon is accessible, pruning unused images")
	out, err := c.docker(ctx, c.opts.PruneTimeout, "image", "prune", "-a", "-f")
	if err != nil {
		var msg string
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			msg = fmt.Sprintf("Docker image cleanup timed out after %s", humanize(c.opts.PruneTimeout))
		case errors.As(err, &exitErr):
			msg = fmt.Sprintf("Docker image cleanup failed with return code %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)))
		default:
			msg = fmt.Sprintf("Docker image cleanup failed: %s", err)
		}
		log.Error(msg)
		c.notifier.Notify(ctx, "Docker Cleanup Failed", msg)
		return PruneFailed
	}
	log.Info("docker image cleanup completed successfully", "output", out)
	return Pruned
}

// docker runs the CLI and returns its trimmed stdout. A run cut short by the
// timeout reports context.DeadlineExceeded; a non-zero exit reports an
// *exec.ExitError with Stderr filled in.
func (c *Cleaner) docker(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.opts.Docker, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	err := cmd.Run()
	if ctx.Err() != nil {
		return "", fmt.Errorf("docker %s: %w", args[0], ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = stderr.Bytes()
		}
		return "", fmt.Errorf("docker %s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func humanize(d time.Duration) string {
	if d%time.Minute == 0 {
		mins := int(d / time.Minute)
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	return d.String()
}
