package job

import (
	"errors"
	"testing"
)

func TestFieldGrammarAccepts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		spec  fieldSpec
		value string
	}{
		{name: "wildcard", spec: minuteField, value: "*"},
		{name: "single minute", spec: minuteField, value: "30"},
		{name: "minute list", spec: minuteField, value: "0,15,30,45"},
		{name: "minute lower bound", spec: minuteField, value: "0"},
		{name: "minute upper bound", spec: minuteField, value: "59"},
		{name: "hour upper bound", spec: hourField, value: "23"},
		{name: "day lower bound", spec: dayField, value: "1"},
		{name: "month name", spec: monthField, value: "jan"},
		{name: "month name upper", spec: monthField, value: "DEC"},
		{name: "month mixed list", spec: monthField, value: "1,jun,12"},
		{name: "weekday sunday zero", spec: weekdayField, value: "0"},
		{name: "weekday sunday seven", spec: weekdayField, value: "7"},
		{name: "weekday name", spec: weekdayField, value: "mon"},
		{name: "weekday list", spec: weekdayField, value: "1,3,5"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.spec.validate(tt.value); err != nil {
				t.Fatalf("validate(%q) error: %v", tt.value, err)
			}
		})
	}
}

func TestFieldGrammarRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		spec  fieldSpec
		value string
	}{
		{name: "empty", spec: minuteField, value: ""},
		{name: "minute out of range", spec: minuteField, value: "60"},
		{name: "negative", spec: minuteField, value: "-1"},
		{name: "hour out of range", spec: hourField, value: "24"},
		{name: "day zero", spec: dayField, value: "0"},
		{name: "month thirteen", spec: monthField, value: "13"},
		{name: "month bad name", spec: monthField, value: "janvier"},
		{name: "weekday eight", spec: weekdayField, value: "8"},
		{name: "range syntax not in grammar", spec: minuteField, value: "1-5"},
		{name: "step syntax not in grammar", spec: minuteField, value: "*/5"},
		{name: "trailing comma", spec: minuteField, value: "1,2,"},
		{name: "list with bad element", spec: minuteField, value: "1,99"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.validate(tt.value)
			if err == nil {
				t.Fatalf("validate(%q) accepted, want error", tt.value)
			}
			var fe *InvalidFieldError
			if !errors.As(err, &fe) {
				t.Fatalf("error type = %T, want *InvalidFieldError", err)
			}
			if fe.Field != tt.spec.name {
				t.Fatalf("error names field %q, want %q", fe.Field, tt.spec.name)
			}
		})
	}
}

func TestValidateNamesFirstInvalidField(t *testing.T) {
	t.Parallel()
	d := Resolve(Descriptor{Name: "client", Hour: "99", Weekday: "99"}, "linux")
	err := Validate(d)
	var fe *InvalidFieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *InvalidFieldError", err)
	}
	// hour is checked before weekday; the first violation must win
	if fe.Field != "hour" {
		t.Fatalf("Field = %q, want hour", fe.Field)
	}
}
