package job

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is the five-field cron tuple a descriptor compiles to.
//
// Fields hold the validated raw strings; no normalization is applied to what
// gets installed, so what the operator wrote is what lands in the crontab.
type Schedule struct {
	Minute  string
	Hour    string
	Day     string
	Month   string
	Weekday string
}

// String renders the classic "m h dom mon dow" form.
func (s Schedule) String() string {
	return strings.Join([]string{s.Minute, s.Hour, s.Day, s.Month, s.Weekday}, " ")
}

// NextRun reports the next execution time after now.
//
// Used for preview/logging only; the system cron daemon is the authority.
// robfig/cron rejects weekday 7, so the Sunday alias is rewritten before
// parsing.
func (s Schedule) NextRun(now time.Time) (time.Time, error) {
	norm := s
	norm.Weekday = rewriteSundayAlias(s.Weekday)
	sched, err := cron.ParseStandard(norm.String())
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}

func rewriteSundayAlias(field string) string {
	if !strings.Contains(field, "7") {
		return field
	}
	parts := strings.Split(field, ",")
	for i, p := range parts {
		if p == "7" {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, ",")
}
