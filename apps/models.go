// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package apps

import "strings"

// App is the appliance's view of one installed application at the time it
// was listed.
type App struct {
	Id               string `json:"id"`
	Name             string `json:"name"`
	State            string `json:"state"`
	Version          string `json:"version,omitempty"`
	UpgradeAvailable bool   `json:"upgrade_available"`
}

func (a App) IsRunning() bool {
	return strings.EqualFold(a.State, "running")
}

// Key is the identifier the upgrade call expects. Appliances that do not
// report an id key apps by name.
func (a App) Key() string {
	if a.Id != "" {
		return a.Id
	}
	return a.Name
}

// Upgradable returns the apps reporting an available upgrade, keeping the
// listing order.
func Upgradable(list []App) []App {
	var ret []App
	for _, a := range list {
		if a.UpgradeAvailable {
			ret = append(ret, a)
		}
	}
	return ret
}

// Job is the handle of a submitted upgrade. It is awaited exactly once.
type Job struct {
	Id  int64
	App string
}
