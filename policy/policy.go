// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package policy

import (
	"errors"
	"slices"

	"github.com/foundriesio/apps-upgrader/apps"
)

var ErrConflictingFilters = errors.New("include and exclude lists cannot be used together")

type SkipReason string

const (
	ReasonMissingName SkipReason = "missing name"
	ReasonExcluded    SkipReason = "excluded"
	ReasonNotIncluded SkipReason = "not included"
	ReasonNotRunning  SkipReason = "not running"
)

// Policy is the operator's choice of which apps may be upgraded.
type Policy struct {
	exclude     map[string]struct{}
	include     map[string]struct{}
	onlyRunning bool
}

// New builds a policy; it fails when both lists name at least one app.
func New(exclude, include []string, onlyRunning bool) (Policy, error) {
	ex, in := toSet(exclude), toSet(include)
	if len(ex) > 0 && len(in) > 0 {
		return Policy{}, ErrConflictingFilters
	}
	return Policy{
		exclude:     ex,
		include:     in,
		onlyRunning: onlyRunning,
	}, nil
}

func (p Policy) Exclude() []string { return fromSet(p.exclude) }
func (p Policy) Include() []string { return fromSet(p.include) }
func (p Policy) OnlyRunning() bool { return p.onlyRunning }

type Decision struct {
	Admit  bool
	Reason SkipReason
}

func admit() Decision                 { return Decision{Admit: true} }
func skip(reason SkipReason) Decision { return Decision{Reason: reason} }
func (d Decision) Skipped() bool      { return !d.Admit }

// ShouldUpgrade applies the rules in a fixed order; the first match wins.
func ShouldUpgrade(app apps.App, p Policy) Decision {
	if app.Name == "" {
		return skip(ReasonMissingName)
	}
	if len(p.exclude) > 0 {
		if _, ok := p.exclude[app.Name]; ok {
			return skip(ReasonExcluded)
		}
	}
	if len(p.include) > 0 {
		if _, ok := p.include[app.Name]; !ok {
			return skip(ReasonNotIncluded)
		}
	}
	if p.onlyRunning && !app.IsRunning() {
		return skip(ReasonNotRunning)
	}
	return admit()
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func fromSet(set map[string]struct{}) []string {
	ret := make([]string, 0, len(set))
	for n := range set {
		ret = append(ret, n)
	}
	slices.Sort(ret)
	return ret
}
