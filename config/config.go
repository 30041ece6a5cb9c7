// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package config holds the agent's startup configuration. Values come from
// the environment (optionally seeded from a .env file) and can be overridden
// by command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/apps/rest"
	"github.com/foundriesio/apps-upgrader/apps/rpc"
	"github.com/foundriesio/apps-upgrader/context"
	"github.com/foundriesio/apps-upgrader/notify"
	"github.com/foundriesio/apps-upgrader/policy"
)

const (
	BindingRpc  = "rpc"
	BindingRest = "rest"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	BaseUrl string `arg:"--base-url,env:BASE_URL" help:"Appliance URL, e.g. https://nas.local"`
	ApiKey  string `arg:"--api-key,env:API_KEY" help:"API key used to authenticate"`

	AppriseUrls     string `arg:"--apprise-urls,env:APPRISE_URLS" help:"Comma separated notification channel URLs"`
	NotifyOnSuccess bool   `arg:"--notify-on-success,env:NOTIFY_ON_SUCCESS" help:"Also notify about successful upgrades"`

	OnlyStartedApps bool   `arg:"--only-update-started-apps,env:ONLY_UPDATE_STARTED_APPS" help:"Only upgrade apps that are running"`
	ExcludeApps     string `arg:"--exclude-apps,env:EXCLUDE_APPS" help:"Comma separated apps to never upgrade"`
	IncludeApps     string `arg:"--include-apps,env:INCLUDE_APPS" help:"Comma separated apps to upgrade, all others are skipped"`

	AutoCleanupImages bool `arg:"--auto-cleanup-images,env:AUTO_CLEANUP_IMAGES" help:"Prune unused docker images after upgrading"`
	SslVerify         bool `arg:"--ssl-verify,env:SSL_VERIFY" help:"Verify the appliance's TLS certificate"`

	Binding      string        `arg:"--api-binding,env:API_BINDING" default:"rpc" help:"Remote API flavor: rpc or rest"`
	JobTimeout   time.Duration `arg:"--job-timeout,env:JOB_TIMEOUT" default:"30m" help:"Maximum wait for one upgrade job"`
	CallTimeout  time.Duration `arg:"--call-timeout,env:CALL_TIMEOUT" default:"60s" help:"Maximum wait for one API call"`
	UpgradePause time.Duration `arg:"--upgrade-pause,env:UPGRADE_PAUSE" default:"1s" help:"Pause between two upgrades"`
	DryRun       bool          `arg:"--dry-run,env:DRY_RUN" help:"Only log which apps would be upgraded"`

	PushgatewayUrl string `arg:"--pushgateway-url,env:PUSHGATEWAY_URL" help:"Push run metrics to this Prometheus Pushgateway"`
	LogLevel       string `arg:"--log-level,env:LOG_LEVEL" default:"info" help:"debug, info, warning or error"`
	LogFormat      string `arg:"--log-format,env:LOG_FORMAT" default:"json" help:"json or text"`
}

// LoadDotenv seeds the environment from path. Variables that are already set
// win, and a missing file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// NewParser returns the go-arg parser bound to cfg so callers can print usage
// or fail the way the library does.
func NewParser(cfg *Config) (*arg.Parser, error) {
	return arg.NewParser(arg.Config{Program: "apps-upgrader"}, cfg)
}

// Parse reads the environment and args into a Config. It does not validate.
func Parse(args []string) (Config, error) {
	var cfg Config
	p, err := NewParser(&cfg)
	if err != nil {
		return cfg, err
	}
	if err := p.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every problem at once. It never touches the network.
func (c Config) Validate() error {
	var errs []error
	if c.BaseUrl == "" || c.ApiKey == "" {
		errs = append(errs, fmt.Errorf("%w: BASE_URL or API_KEY is not set", ErrInvalid))
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.Binding != BindingRpc && c.Binding != BindingRest {
		errs = append(errs, fmt.Errorf("%w: unknown API_BINDING %q, expected %s or %s", ErrInvalid, c.Binding, BindingRpc, BindingRest))
	}
	for _, u := range c.NotifyUrls() {
		if _, err := notify.ParseChannel(u); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
		}
	}
	if c.JobTimeout <= 0 || c.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: JOB_TIMEOUT and CALL_TIMEOUT must be positive", ErrInvalid))
	}
	return errors.Join(errs...)
}

func (c Config) Policy() (policy.Policy, error) {
	return policy.New(SplitList(c.ExcludeApps), SplitList(c.IncludeApps), c.OnlyStartedApps)
}

func (c Config) NotifyUrls() []string {
	return SplitList(c.AppriseUrls)
}

// Notifier builds the notifier from whichever channel URLs parse. The error
// lists the ones that did not, so a configuration problem can still be
// reported over the good channels.
func (c Config) Notifier() (*notify.Notifier, error) {
	var good []string
	var errs []error
	for _, u := range c.NotifyUrls() {
		if _, err := notify.ParseChannel(u); err != nil {
			errs = append(errs, err)
			continue
		}
		good = append(good, u)
	}
	n, err := notify.New(good)
	if err != nil {
		errs = append(errs, err)
	}
	return n, errors.Join(errs...)
}

// NewClient connects the configured binding. For rpc this dials the
// websocket; rest connects lazily.
func (c Config) NewClient(ctx context.Context) (apps.Client, error) {
	switch c.Binding {
	case BindingRpc:
		client, err := rpc.Dial(ctx, c.BaseUrl, rpc.Options{
			ApiKey:      c.ApiKey,
			VerifyTLS:   c.SslVerify,
			CallTimeout: c.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case BindingRest:
		client, err := rest.New(c.BaseUrl, rest.Options{
			ApiKey:      c.ApiKey,
			VerifyTLS:   c.SslVerify,
			CallTimeout: c.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("%w: unknown API_BINDING %q", ErrInvalid, c.Binding)
}

// SplitList splits a comma separated value, trimming entries and dropping
// empty ones.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
