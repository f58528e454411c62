// Package automation schedules recurring runs against existing threads. The
// cron dialect is deliberately narrow: five whitespace-separated fields, each
// either "*" or a single integer literal. No ranges, steps, lists, or names.
package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSpec is a parsed five-field cron expression.
type CronSpec struct {
	minute cronField
	hour   cronField
	dom    cronField
	month  cronField
	dow    cronField
}

type cronField struct {
	any   bool
	value int
}

var cronFieldDefs = []struct {
	name string
	min  int
	max  int
}{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

// ParseCron parses an expression in the narrow dialect. Day-of-week runs
// Sunday=0 through Saturday=6.
func ParseCron(expr string) (CronSpec, error) {
	fields := strings.Fields(expr)
	if len(fields) != len(cronFieldDefs) {
		return CronSpec{}, fmt.Errorf("cron expression needs %d fields, got %d", len(cronFieldDefs), len(fields))
	}

	parsed := make([]cronField, len(fields))
	for i, raw := range fields {
		def := cronFieldDefs[i]
		f, err := parseCronField(raw, def.name, def.min, def.max)
		if err != nil {
			return CronSpec{}, err
		}
		parsed[i] = f
	}

	return CronSpec{
		minute: parsed[0],
		hour:   parsed[1],
		dom:    parsed[2],
		month:  parsed[3],
		dow:    parsed[4],
	}, nil
}

func parseCronField(raw, name string, min, max int) (cronField, error) {
	if raw == "*" {
		return cronField{any: true}, nil
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return cronField{}, fmt.Errorf("cron %s field %q: only integer literals and * are supported", name, raw)
		}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return cronField{}, fmt.Errorf("cron %s field %q: %w", name, raw, err)
	}
	if v < min || v > max {
		return cronField{}, fmt.Errorf("cron %s field %q: out of range %d-%d", name, raw, min, max)
	}
	return cronField{value: v}, nil
}

// Matches reports whether t satisfies every field of the spec.
func (s CronSpec) Matches(t time.Time) bool {
	return s.minute.matches(t.Minute()) &&
		s.hour.matches(t.Hour()) &&
		s.dom.matches(t.Day()) &&
		s.month.matches(int(t.Month())) &&
		s.dow.matches(int(t.Weekday()))
}

func (f cronField) matches(v int) bool {
	return f.any || f.value == v
}

// sameMinuteBucket reports whether last falls in the same minute as now.
// Comparison is on absolute instants, so mixed time zones are harmless.
func sameMinuteBucket(last *time.Time, now time.Time) bool {
	if last == nil {
		return false
	}
	return last.Truncate(time.Minute).Equal(now.Truncate(time.Minute))
}
