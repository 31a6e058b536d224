package config

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	logx "cronsmith/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging, and (3) a list of job names whose
// definition changed (added, removed, or edited).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	// Node identity overrides
	if strings.TrimSpace(oldCfg.Node.Name) != strings.TrimSpace(newCfg.Node.Name) ||
		strings.TrimSpace(oldCfg.Node.Platform) != strings.TrimSpace(newCfg.Node.Platform) {
		changed = append(changed, "node")
		attrs = append(attrs,
			logx.Bool("node.name_set", strings.TrimSpace(newCfg.Node.Name) != ""),
			logx.String("node.platform", strings.TrimSpace(newCfg.Node.Platform)),
		)
	}

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage (persistence). Nil means disabled.
	oldS := oldCfg.Storage
	newS := newCfg.Storage
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldS != nil {
		oDriver = strings.TrimSpace(oldS.Driver)
		oBusy = strings.TrimSpace(oldS.BusyTimeout)
		oPathSet = strings.TrimSpace(oldS.Path) != ""
	}
	if newS != nil {
		nDriver = strings.TrimSpace(newS.Driver)
		nBusy = strings.TrimSpace(newS.BusyTimeout)
		nPathSet = strings.TrimSpace(newS.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	// Apply loop
	if !reflect.DeepEqual(oldCfg.Apply, newCfg.Apply) {
		changed = append(changed, "apply")
		attrs = append(attrs,
			logx.String("apply.interval", strings.TrimSpace(newCfg.Apply.Interval)),
			logx.Bool("apply.dry_run", newCfg.Apply.DryRun),
			logx.Int("apply.ops_per_sec", newCfg.Apply.OpsPerSec),
		)
	}

	// Cron backend overrides
	if !reflect.DeepEqual(oldCfg.Cron, newCfg.Cron) {
		changed = append(changed, "cron")
		attrs = append(attrs,
			logx.String("cron.directory", strings.TrimSpace(newCfg.Cron.Directory)),
			logx.String("cron.crontab_command", strings.TrimSpace(newCfg.Cron.CrontabCommand)),
		)
	}

	// Jobs (summarize only; details at debug)
	jobsChanged := diffJobs(oldCfg.Jobs, newCfg.Jobs)
	if len(jobsChanged) > 0 {
		changed = append(changed, "jobs")
		attrs = append(attrs,
			logx.Int("jobs.changed_count", len(jobsChanged)),
			logx.Int("jobs.total_count", len(newCfg.Jobs)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, jobsChanged
}

// diffJobs compares job sets by name and returns the names that were added,
// removed, or whose definition changed. Comparison is done over the canonical
// JSON form so field order and zero values don't produce false positives.
func diffJobs(oldJobs, newJobs []JobConfig) []string {
	oldM := indexJobs(oldJobs)
	newM := indexJobs(newJobs)

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, oOK := oldM[name]
		n, nOK := newM[name]
		if oOK != nOK {
			out = append(out, name)
			continue
		}
		if jobHash(o) != jobHash(n) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func indexJobs(jobs []JobConfig) map[string]JobConfig {
	m := make(map[string]JobConfig, len(jobs))
	for _, j := range jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			continue
		}
		m[name] = j
	}
	return m
}

func jobHash(j JobConfig) uint64 {
	b, err := json.Marshal(j)
	if err != nil {
		return 0
	}
	return canonicalHashJSON(b)
}
