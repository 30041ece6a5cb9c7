// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package upgrader

import (
	"time"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/policy"
)

// Result records what happened to one upgrade candidate.
type Result struct {
	App        string
	Skipped    bool
	SkipReason policy.SkipReason
	// Planned is set instead of Outcome on dry runs.
	Planned  bool
	Outcome  apps.Outcome
	Duration time.Duration
}

type Report struct {
	Total      int
	Candidates int
	Succeeded  int
	Failed     int
	TimedOut   int
	Skipped    int
	Planned    int
	Duration   time.Duration
	Results    []Result
}

// Processed is the number of apps that went through the upgrade state machine.
func (r Report) Processed() int {
	return r.Succeeded + r.Failed + r.TimedOut
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch {
	case res.Skipped:
		r.Skipped++
	case res.Planned:
		r.Planned++
	case res.Outcome.Kind == apps.Succeeded:
		r.Succeeded++
	case res.Outcome.Kind == apps.TimedOut:
		r.TimedOut++
	default:
		r.Failed++
	}
}
