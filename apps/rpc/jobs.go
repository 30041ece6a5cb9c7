// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rpc

import (
	"fmt"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/context"
)

// AwaitJob polls the job list until the job reaches a final state. The wait
// is bounded by ctx only; the remote job is never aborted. An expired
// deadline is a timeout, a cancelled ctx is a failure.
func (c *Client) AwaitJob(ctx context.Context, job apps.Job) apps.Outcome {
	log := context.CtxGetLog(ctx).With("job_id", job.Id)
	lastPercent := -1.0
	for {
		info, err := c.getJob(ctx, job.Id)
		if err != nil {
			return apps.OutcomeFromError(err)
		}
		switch info.State {
		case jobSuccess:
			return apps.Success()
		case jobFailed, jobAborted:
			reason := info.Error
			if reason == "" {
				reason = "job " + info.State
			}
			return apps.OutcomeFromError(&apps.RemoteError{Message: reason})
		}
		if info.Progress.Percent != lastPercent {
			lastPercent = info.Progress.Percent
			log.Debug("job in progress", "state", info.State, "percent", lastPercent, "description", info.Progress.Description)
		}

		select {
		case <-ctx.Done():
			return apps.OutcomeFromError(fmt.Errorf("job %d still %s: %w", job.Id, info.State, ctx.Err()))
		case <-c.opts.Clock.After(c.opts.PollInterval):
		}
	}
}

func (c *Client) getJob(ctx context.Context, id int64) (jobInfo, error) {
	var jobs []jobInfo
	filter := []any{[]any{"id", "=", id}}
	if err := c.Call(ctx, "core.get_jobs", []any{filter}, &jobs); err != nil {
		return jobInfo{}, err
	}
	if len(jobs) == 0 {
		return jobInfo{}, fmt.Errorf("job %d not found", id)
	}
	return jobs[0], nil
}
