package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
apply:
  interval: 5m
  dry_run: true
jobs:
  - name: chef-client
    minute: "0,30"
    splay: "120"
    accept_license: true
    daemon_options: ["--once"]
    environment:
      PATH: /usr/sbin:/usr/bin
`)
	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Apply.Interval != "5m" || !cfg.Apply.DryRun {
		t.Fatalf("Apply = %+v, want interval 5m dry_run", cfg.Apply)
	}
	if len(cfg.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(cfg.Jobs))
	}
	j := cfg.Jobs[0]
	if int(j.Splay) != 120 {
		t.Fatalf("Splay = %d, want 120 (string coerced)", j.Splay)
	}
	d := j.Descriptor()
	if !d.AppendLog {
		t.Fatal("AppendLog should default to true when omitted")
	}
	if d.Environment["PATH"] != "/usr/sbin:/usr/bin" {
		t.Fatalf("Environment = %v", d.Environment)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
  "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}},
  "apply": {},
  "jobs": [],
  "totally_unknown": 1
}`)
	m := NewConfigManager(path)
	if _, err := m.Load(); err == nil {
		t.Fatal("Load accepted unknown top-level field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json",
		`{"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""}},"apply":{},"jobs":[]}{}`)
	m := NewConfigManager(path)
	if _, err := m.Load(); err == nil {
		t.Fatal("Load accepted trailing JSON data")
	}
}

func TestAppendLogExplicitFalse(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging: {level: info, console: true, file: {enabled: false, path: ""}}
apply: {}
jobs:
  - name: chef-client
    append_log: false
`)
	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d := cfg.Jobs[0].Descriptor(); d.AppendLog {
		t.Fatal("AppendLog = true, want explicit false to stick")
	}
}

func TestSummarizeConfigChangeJobs(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Jobs: []JobConfig{
		{Name: "a", Minute: "0"},
		{Name: "b", Minute: "15"},
	}}
	newCfg := &Config{Jobs: []JobConfig{
		{Name: "a", Minute: "30"}, // edited
		{Name: "c", Minute: "45"}, // added; b removed
	}}
	changed, _, jobs := SummarizeConfigChange(oldCfg, newCfg)
	if len(changed) != 1 || changed[0] != "jobs" {
		t.Fatalf("changed = %v, want [jobs]", changed)
	}
	want := []string{"a", "b", "c"}
	if len(jobs) != len(want) {
		t.Fatalf("jobs = %v, want %v", jobs, want)
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Fatalf("jobs = %v, want %v", jobs, want)
		}
	}
}

func TestSummarizeConfigChangeStable(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Jobs:    []JobConfig{{Name: "a"}},
	}
	changed, _, jobs := SummarizeConfigChange(cfg, cfg)
	if len(changed) != 0 || len(jobs) != 0 {
		t.Fatalf("identical configs reported changes: %v %v", changed, jobs)
	}
}
