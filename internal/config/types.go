package config

import (
	"cronsmith/internal/job"
)

type Config struct {
	Node    NodeConfig    `json:"node,omitempty"`
	Logging LoggingConfig `json:"logging"`

	// Storage enables the optional persistence layer. Nil means disabled.
	Storage *StorageConfig `json:"storage,omitempty"`

	Apply ApplyConfig `json:"apply"`
	Cron  CronConfig  `json:"cron,omitempty"`

	// Jobs is the desired set of periodic client-agent runs. Installed jobs
	// that are no longer listed here are removed on the next apply.
	Jobs []JobConfig `json:"jobs"`
}

// NodeConfig overrides autodetected node identity. Leave empty to use the
// hostname and the detected platform.
type NodeConfig struct {
	Name     string `json:"name,omitempty"`
	Platform string `json:"platform,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "/var/lib/cronsmith/state" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ApplyConfig controls the reconcile loop.
//
// All durations are Go duration strings (e.g. "30s", "5m").
type ApplyConfig struct {
	// Interval between periodic reconcile passes. "0s" disables the periodic
	// loop; config reloads still trigger a pass.
	Interval string `json:"interval,omitempty"`

	// DryRun logs planned changes without touching cron.
	DryRun bool `json:"dry_run,omitempty"`

	// OpsPerSec rate-limits install/remove operations. 0 means unlimited.
	OpsPerSec int `json:"ops_per_sec,omitempty"`
}

// CronConfig overrides where and how entries are installed.
type CronConfig struct {
	// Directory for the cron.d backend. Default: /etc/cron.d.
	Directory string `json:"directory,omitempty"`

	// CrontabCommand for the legacy crontab backend. Default: crontab.
	CrontabCommand string `json:"crontab_command,omitempty"`
}

// JobConfig is the on-disk form of one job. Field coercions live here so the
// descriptor itself stays a plain value object.
type JobConfig struct {
	Name string `json:"name"`
	User string `json:"user,omitempty"`

	Minute  string `json:"minute,omitempty"`
	Hour    string `json:"hour,omitempty"`
	Day     string `json:"day,omitempty"`
	Month   string `json:"month,omitempty"`
	Weekday string `json:"weekday,omitempty"`

	// Splay accepts a number or a quoted string.
	Splay     job.Splay `json:"splay,omitempty"`
	SplaySeed *uint64   `json:"splay_seed,omitempty"`

	MailTo        string `json:"mailto,omitempty"`
	AcceptLicense bool   `json:"accept_license,omitempty"`

	ConfigDirectory string `json:"config_directory,omitempty"`
	LogDirectory    string `json:"log_directory,omitempty"`
	LogFileName     string `json:"log_file_name,omitempty"`
	BinaryPath      string `json:"binary_path,omitempty"`

	// AppendLog defaults to true when omitted.
	AppendLog     *bool             `json:"append_log,omitempty"`
	DaemonOptions []string          `json:"daemon_options,omitempty"`
	Environment   map[string]string `json:"environment,omitempty"`

	// Disabled keeps the job in config but removes it from cron.
	Disabled bool `json:"disabled,omitempty"`
}

// Descriptor converts the on-disk form to a job descriptor. Defaults beyond
// the coercions here are applied by job.Resolve.
func (j JobConfig) Descriptor() job.Descriptor {
	appendLog := true
	if j.AppendLog != nil {
		appendLog = *j.AppendLog
	}
	return job.Descriptor{
		Name:            j.Name,
		User:            j.User,
		Minute:          j.Minute,
		Hour:            j.Hour,
		Day:             j.Day,
		Month:           j.Month,
		Weekday:         j.Weekday,
		Splay:           int(j.Splay),
		SplaySeed:       j.SplaySeed,
		MailTo:          j.MailTo,
		AcceptLicense:   j.AcceptLicense,
		ConfigDirectory: j.ConfigDirectory,
		LogDirectory:    j.LogDirectory,
		LogFileName:     j.LogFileName,
		BinaryPath:      j.BinaryPath,
		AppendLog:       appendLog,
		DaemonOptions:   j.DaemonOptions,
		Environment:     j.Environment,
	}
}
