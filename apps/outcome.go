// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package apps

import (
	"context"
	"errors"
	"fmt"
)

type OutcomeKind int

const (
	Succeeded OutcomeKind = iota
	Failed
	TimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed-out"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the terminal state of one app upgrade.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func Success() Outcome {
	return Outcome{Kind: Succeeded}
}

func Failure(reason string) Outcome {
	return Outcome{Kind: Failed, Reason: reason}
}

func Timeout(reason string) Outcome {
	return Outcome{Kind: TimedOut, Reason: reason}
}

// ErrTimeout marks a call or wait that ran out of time before the appliance
// answered.
var ErrTimeout = errors.New("timed out")

// RemoteError is a failure reported by the appliance with a structured
// message, as opposed to a transport problem.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	}
	return e.Message
}

// OutcomeFromError classifies the error returned by a wait: nil is success,
// deadlines are timeouts, remote errors keep their message and anything else
// is a failure with the error text.
func OutcomeFromError(err error) Outcome {
	if err == nil {
		return Success()
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err.Error())
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return Failure(remote.Message)
	}
	return Failure(err.Error())
}
