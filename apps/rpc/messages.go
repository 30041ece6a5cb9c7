// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rpc

import (
	"encoding/json"

	"github.com/foundriesio/apps-upgrader/apps"
)

type request struct {
	JsonRpc string `json:"jsonrpc"`
	Id      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JsonRpc string          `json:"jsonrpc"`
	Id      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *rpcErrorData `json:"data,omitempty"`
}

// rpcErrorData carries the appliance's own error details.
type rpcErrorData struct {
	Error   int    `json:"error"`
	ErrName string `json:"errname"`
	Reason  string `json:"reason"`
}

func (e *rpcError) remote() *apps.RemoteError {
	ret := &apps.RemoteError{Code: e.Code, Message: e.Message}
	if e.Data != nil && e.Data.Reason != "" {
		ret.Message = e.Data.Reason
		if e.Data.ErrName != "" {
			ret.Message = "[" + e.Data.ErrName + "] " + e.Data.Reason
		}
	}
	return ret
}

// jobInfo is the subset of a core.get_jobs entry needed to follow a job.
type jobInfo struct {
	Id       int64  `json:"id"`
	Method   string `json:"method"`
	State    string `json:"state"`
	Error    string `json:"error"`
	Progress struct {
		Percent     float64 `json:"percent"`
		Description string  `json:"description"`
	} `json:"progress"`
}

const (
	jobSuccess = "SUCCESS"
	jobFailed  = "FAILED"
	jobAborted = "ABORTED"
)
