package job

import (
	"strconv"
	"strings"
)

// fieldSpec describes the domain of a single cron field.
//
// The accepted grammar is deliberately narrow: "*", a single value, or a
// comma-separated list of values. A value is an integer within [min,max], or
// one of the symbolic names when the field defines any.
type fieldSpec struct {
	name string
	min  int
	max  int

	// symbolic values (lowercased); month and weekday only
	names map[string]int
}

var (
	minuteField = fieldSpec{name: "minute", min: 0, max: 59}
	hourField   = fieldSpec{name: "hour", min: 0, max: 23}
	dayField    = fieldSpec{name: "day", min: 1, max: 31}

	monthField = fieldSpec{name: "month", min: 1, max: 12, names: map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}}

	// 0 and 7 both mean Sunday, as in every cron worth the name.
	weekdayField = fieldSpec{name: "weekday", min: 0, max: 7, names: map[string]int{
		"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
	}}
)

func (f fieldSpec) validate(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return &InvalidFieldError{Field: f.name, Value: raw, Reason: "empty"}
	}
	if s == "*" {
		return nil
	}
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			return &InvalidFieldError{Field: f.name, Value: raw, Reason: "empty list element"}
		}
		if err := f.validateOne(raw, part); err != nil {
			return err
		}
	}
	return nil
}

func (f fieldSpec) validateOne(raw, part string) error {
	if f.names != nil {
		if _, ok := f.names[strings.ToLower(part)]; ok {
			return nil
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		reason := "not an integer"
		if f.names != nil {
			reason = "not an integer or known name"
		}
		return &InvalidFieldError{Field: f.name, Value: raw, Reason: reason}
	}
	if n < f.min || n > f.max {
		return &InvalidFieldError{
			Field:  f.name,
			Value:  raw,
			Reason: "out of range " + strconv.Itoa(f.min) + "-" + strconv.Itoa(f.max),
		}
	}
	return nil
}
