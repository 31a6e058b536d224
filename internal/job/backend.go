package job

import "strings"

// Backend selects how a compiled entry reaches the cron daemon.
type Backend int

const (
	// LegacyCrontab edits the per-user crontab via crontab(1).
	LegacyCrontab Backend = iota
	// CronDirectory drops one file per job into /etc/cron.d.
	CronDirectory
)

func (b Backend) String() string {
	switch b {
	case CronDirectory:
		return "cron_d"
	case LegacyCrontab:
		return "crontab"
	default:
		return "unknown"
	}
}

// backendByPlatform is the whole algorithm: platforms with reliable
// /etc/cron.d support get CronDirectory, everything else the per-user
// crontab. Unknown platforms are an error, not a silent default.
var backendByPlatform = map[string]Backend{
	// linux family
	"linux":     CronDirectory,
	"debian":    CronDirectory,
	"ubuntu":    CronDirectory,
	"raspbian":  CronDirectory,
	"linuxmint": CronDirectory,
	"rhel":      CronDirectory,
	"redhat":    CronDirectory,
	"centos":    CronDirectory,
	"rocky":     CronDirectory,
	"almalinux": CronDirectory,
	"oracle":    CronDirectory,
	"fedora":    CronDirectory,
	"amazon":    CronDirectory,
	"amzn":      CronDirectory,
	"sles":      CronDirectory,
	"suse":      CronDirectory,
	"opensuse":  CronDirectory,
	"arch":      CronDirectory,
	"alpine":    CronDirectory,
	"gentoo":    CronDirectory,

	// everything with only a classic crontab
	"aix":         LegacyCrontab,
	"solaris":     LegacyCrontab,
	"solaris2":    LegacyCrontab,
	"smartos":     LegacyCrontab,
	"omnios":      LegacyCrontab,
	"openindiana": LegacyCrontab,
	"freebsd":     LegacyCrontab,
	"openbsd":     LegacyCrontab,
	"netbsd":      LegacyCrontab,
	"dragonfly":   LegacyCrontab,
	"darwin":      LegacyCrontab,
	"macos":       LegacyCrontab,
	"mac_os_x":    LegacyCrontab,
}

// SelectBackend maps a platform identifier to its cron backend.
func SelectBackend(platform string) (Backend, error) {
	key := strings.ToLower(strings.TrimSpace(platform))
	b, ok := backendByPlatform[key]
	if !ok {
		return 0, &UnsupportedPlatformError{Platform: platform}
	}
	return b, nil
}
