package job

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Default values applied by Resolve. The canonical client agent is
// chef-client; every path can be overridden per job.
const (
	DefaultUser        = "root"
	DefaultSplay       = 300
	DefaultMinute      = "0,30"
	DefaultLogFileName = "client.log"

	defaultConfigDir  = "/etc/chef"
	defaultLogDir     = "/var/log/chef"
	defaultBinaryPath = "/opt/chef/bin/chef-client"

	windowsConfigDir  = "C:/chef"
	windowsLogDir     = "C:/chef/log"
	windowsBinaryPath = "C:/opscode/chef/bin/chef-client"
)

// Descriptor declares one periodic client-agent run. It is a value object:
// construct, resolve, validate, compile. Recompiling a job means building a
// new descriptor.
type Descriptor struct {
	Name string
	User string

	// Cron fields. Grammar per field: "*", one in-range value, or a comma
	// list of in-range values. Month and weekday also accept names.
	Minute  string
	Hour    string
	Day     string
	Month   string
	Weekday string

	// Splay is the upper bound (exclusive, seconds) of the random start
	// delay. Must be > 0 after resolution.
	Splay int

	// SplaySeed, when set, overrides the node-identity-derived seed.
	SplaySeed *uint64

	MailTo        string
	AcceptLicense bool

	ConfigDirectory string
	LogDirectory    string
	LogFileName     string
	BinaryPath      string

	AppendLog     bool
	DaemonOptions []string
	Environment   map[string]string
}

// Schedule returns the cron tuple for the descriptor. Call Validate first;
// Schedule does not re-check the fields.
func (d Descriptor) Schedule() Schedule {
	return Schedule{
		Minute:  d.Minute,
		Hour:    d.Hour,
		Day:     d.Day,
		Month:   d.Month,
		Weekday: d.Weekday,
	}
}

// Resolve fills unset fields with their defaults. Platform-conditional paths
// are resolved here, once, rather than queried lazily at use time.
func Resolve(d Descriptor, platform string) Descriptor {
	if strings.TrimSpace(d.User) == "" {
		d.User = DefaultUser
	}
	if d.Splay == 0 {
		d.Splay = DefaultSplay
	}
	if strings.TrimSpace(d.Minute) == "" {
		d.Minute = DefaultMinute
	}
	for _, f := range []*string{&d.Hour, &d.Day, &d.Month, &d.Weekday} {
		if strings.TrimSpace(*f) == "" {
			*f = "*"
		}
	}

	windows := strings.EqualFold(strings.TrimSpace(platform), "windows")
	if strings.TrimSpace(d.ConfigDirectory) == "" {
		d.ConfigDirectory = defaultConfigDir
		if windows {
			d.ConfigDirectory = windowsConfigDir
		}
	}
	if strings.TrimSpace(d.LogDirectory) == "" {
		d.LogDirectory = defaultLogDir
		if windows {
			d.LogDirectory = windowsLogDir
		}
	}
	if strings.TrimSpace(d.LogFileName) == "" {
		d.LogFileName = DefaultLogFileName
	}
	if strings.TrimSpace(d.BinaryPath) == "" {
		d.BinaryPath = defaultBinaryPath
		if windows {
			d.BinaryPath = windowsBinaryPath
		}
	}
	return d
}

// Validate checks the descriptor against its invariants. The first violation
// wins; cron fields are checked in fixed order (minute, hour, day, month,
// weekday) so the error is deterministic and names the offending field.
func Validate(d Descriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("job name required")
	}
	if strings.TrimSpace(d.User) == "" {
		return fmt.Errorf("job %s: user required", d.Name)
	}

	checks := []struct {
		spec  fieldSpec
		value string
	}{
		{minuteField, d.Minute},
		{hourField, d.Hour},
		{dayField, d.Day},
		{monthField, d.Month},
		{weekdayField, d.Weekday},
	}
	for _, c := range checks {
		if err := c.spec.validate(c.value); err != nil {
			return err
		}
	}

	if d.Splay <= 0 {
		return &InvalidSplayError{Value: strconv.Itoa(d.Splay)}
	}
	if d.MailTo != "" && !looksLikeRecipient(d.MailTo) {
		return fmt.Errorf("job %s: mailto %q does not look like a mail recipient", d.Name, d.MailTo)
	}
	for name, v := range map[string]string{
		"config_directory": d.ConfigDirectory,
		"log_directory":    d.LogDirectory,
		"log_file_name":    d.LogFileName,
		"binary_path":      d.BinaryPath,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("job %s: %s required", d.Name, name)
		}
	}
	return nil
}

// looksLikeRecipient is intentionally loose: cron's MAILTO accepts local
// users as well as full addresses, so only obvious garbage is rejected.
func looksLikeRecipient(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	if i := strings.Index(s, "@"); i == 0 || i == len(s)-1 {
		return false
	}
	return true
}

// Splay carries the splay value through config decoding. The on-disk form may
// be a JSON/YAML number or a quoted string; both coerce to a plain int.
type Splay int

func (s *Splay) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*s = Splay(n)
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return &InvalidSplayError{Value: string(b)}
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return &InvalidSplayError{Value: raw}
	}
	*s = Splay(n)
	return nil
}
