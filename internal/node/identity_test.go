package node

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectOverridesWin(t *testing.T) {
	t.Parallel()
	id, err := Detect("node-01.example.com", "solaris")
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	if id.Name != "node-01.example.com" {
		t.Fatalf("Name = %q, want override", id.Name)
	}
	if id.Platform != "solaris" {
		t.Fatalf("Platform = %q, want override", id.Platform)
	}
	if id.Family == "" {
		t.Fatal("Family should always be populated")
	}
}

func TestDetectFallsBackToHostname(t *testing.T) {
	t.Parallel()
	id, err := Detect("", "linux")
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	host, _ := os.Hostname()
	if id.Name != host {
		t.Fatalf("Name = %q, want hostname %q", id.Name, host)
	}
}

func TestOSReleaseID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "quoted",
			content: "NAME=\"Ubuntu\"\nID=\"ubuntu\"\nVERSION_ID=\"24.04\"\n",
			want:    "ubuntu",
		},
		{
			name:    "bare",
			content: "ID=debian\n",
			want:    "debian",
		},
		{
			name:    "missing key",
			content: "NAME=Something\n",
			want:    "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "os-release")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			if got := osReleaseID(path); got != tt.want {
				t.Fatalf("osReleaseID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOSReleaseIDMissingFile(t *testing.T) {
	t.Parallel()
	if got := osReleaseID(filepath.Join(t.TempDir(), "nope")); got != "" {
		t.Fatalf("osReleaseID = %q, want empty", got)
	}
}
