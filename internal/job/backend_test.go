package job

import (
	"errors"
	"testing"
)

func TestSelectBackend(t *testing.T) {
	t.Parallel()
	tests := []struct {
		platform string
		want     Backend
	}{
		{platform: "linux", want: CronDirectory},
		{platform: "ubuntu", want: CronDirectory},
		{platform: "amazon", want: CronDirectory},
		{platform: "Debian", want: CronDirectory}, // case-insensitive
		{platform: "solaris", want: LegacyCrontab},
		{platform: "aix", want: LegacyCrontab},
		{platform: "freebsd", want: LegacyCrontab},
		{platform: "darwin", want: LegacyCrontab},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.platform, func(t *testing.T) {
			got, err := SelectBackend(tt.platform)
			if err != nil {
				t.Fatalf("SelectBackend(%q) error: %v", tt.platform, err)
			}
			if got != tt.want {
				t.Fatalf("SelectBackend(%q) = %v, want %v", tt.platform, got, tt.want)
			}
		})
	}
}

func TestSelectBackendUnknownPlatform(t *testing.T) {
	t.Parallel()
	_, err := SelectBackend("plan9")
	var ue *UnsupportedPlatformError
	if !errors.As(err, &ue) {
		t.Fatalf("error type = %T, want *UnsupportedPlatformError", err)
	}
	if ue.Platform != "plan9" {
		t.Fatalf("Platform = %q, want plan9", ue.Platform)
	}
}
