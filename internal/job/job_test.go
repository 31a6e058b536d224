package job

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestResolveDefaults(t *testing.T) {
	t.Parallel()
	d := Resolve(Descriptor{Name: "client"}, "linux")

	if d.User != "root" {
		t.Fatalf("User = %q, want root", d.User)
	}
	if d.Splay != 300 {
		t.Fatalf("Splay = %d, want 300", d.Splay)
	}
	if d.Minute != "0,30" {
		t.Fatalf("Minute = %q, want 0,30", d.Minute)
	}
	for _, f := range []string{d.Hour, d.Day, d.Month, d.Weekday} {
		if f != "*" {
			t.Fatalf("unset cron field resolved to %q, want *", f)
		}
	}
	if d.ConfigDirectory != "/etc/chef" || d.LogDirectory != "/var/log/chef" {
		t.Fatalf("paths = %q %q, want linux defaults", d.ConfigDirectory, d.LogDirectory)
	}
	if d.BinaryPath != "/opt/chef/bin/chef-client" {
		t.Fatalf("BinaryPath = %q", d.BinaryPath)
	}
}

func TestResolveWindowsPaths(t *testing.T) {
	t.Parallel()
	d := Resolve(Descriptor{Name: "client"}, "windows")
	if d.ConfigDirectory != "C:/chef" || d.LogDirectory != "C:/chef/log" {
		t.Fatalf("paths = %q %q, want windows defaults", d.ConfigDirectory, d.LogDirectory)
	}
}

func TestResolveKeepsExplicitValues(t *testing.T) {
	t.Parallel()
	d := Resolve(Descriptor{
		Name:            "client",
		User:            "chef",
		Minute:          "5",
		Splay:           60,
		ConfigDirectory: "/srv/chef",
	}, "linux")
	if d.User != "chef" || d.Minute != "5" || d.Splay != 60 || d.ConfigDirectory != "/srv/chef" {
		t.Fatalf("explicit values were overwritten: %+v", d)
	}
}

func TestValidateSplay(t *testing.T) {
	t.Parallel()
	d := Resolve(Descriptor{Name: "client"}, "linux")
	d.Splay = -5
	err := Validate(d)
	var se *InvalidSplayError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T, want *InvalidSplayError", err)
	}
}

func TestValidateWeekdayAliases(t *testing.T) {
	t.Parallel()
	for _, wd := range []string{"0", "7"} {
		d := Resolve(Descriptor{Name: "client", Weekday: wd}, "linux")
		if err := Validate(d); err != nil {
			t.Fatalf("weekday %q rejected: %v", wd, err)
		}
	}
}

func TestValidateMailto(t *testing.T) {
	t.Parallel()
	ok := []string{"ops@example.com", "root", "oncall+cron@example.org"}
	for _, m := range ok {
		d := Resolve(Descriptor{Name: "client", MailTo: m}, "linux")
		if err := Validate(d); err != nil {
			t.Fatalf("mailto %q rejected: %v", m, err)
		}
	}
	bad := []string{"has space@example.com", "@example.com", "trailing@"}
	for _, m := range bad {
		d := Resolve(Descriptor{Name: "client", MailTo: m}, "linux")
		if err := Validate(d); err == nil {
			t.Fatalf("mailto %q accepted, want error", m)
		}
	}
}

func TestSplayCoercion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want int
		bad  bool
	}{
		{name: "number", raw: `600`, want: 600},
		{name: "quoted number", raw: `"600"`, want: 600},
		{name: "quoted with space", raw: `" 45 "`, want: 45},
		{name: "garbage", raw: `"ten"`, bad: true},
		{name: "float", raw: `1.5`, bad: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var s Splay
			err := json.Unmarshal([]byte(tt.raw), &s)
			if tt.bad {
				if err == nil {
					t.Fatalf("Unmarshal(%s) accepted, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.raw, err)
			}
			if int(s) != tt.want {
				t.Fatalf("Splay = %d, want %d", s, tt.want)
			}
		})
	}
}
