package cron

import (
	"context"
	"strings"

	"cronsmith/internal/job"
	logx "cronsmith/pkg/logx"
)

// Entry is one installable cron line plus its per-job environment.
type Entry struct {
	Name     string
	User     string
	Schedule job.Schedule
	Command  string

	MailTo      string
	Environment map[string]string
}

// Installer writes/removes entries in whatever the platform's cron reads.
//
// Implementations must be idempotent: installing an unchanged entry must not
// rewrite anything, and removing an absent entry is not an error.
type Installer interface {
	Install(ctx context.Context, e Entry) error
	Remove(ctx context.Context, name, user string) error
}

// Config configures the installers.
type Config struct {
	// Directory is where the cron_d backend drops its files.
	Directory string
	// CrontabCommand is the crontab(1) binary the legacy backend shells to.
	CrontabCommand string
}

const (
	defaultCronDirectory  = "/etc/cron.d"
	defaultCrontabCommand = "crontab"
)

// Open returns the installer for the selected backend.
func Open(backend job.Backend, cfg Config, log logx.Logger) (Installer, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch backend {
	case job.CronDirectory:
		dir := strings.TrimSpace(cfg.Directory)
		if dir == "" {
			dir = defaultCronDirectory
		}
		return &crondirInstaller{dir: dir, log: log}, nil
	case job.LegacyCrontab:
		bin := strings.TrimSpace(cfg.CrontabCommand)
		if bin == "" {
			bin = defaultCrontabCommand
		}
		return &crontabInstaller{bin: bin, log: log}, nil
	default:
		return nil, &job.UnsupportedPlatformError{Platform: backend.String()}
	}
}
