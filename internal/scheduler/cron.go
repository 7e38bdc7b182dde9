// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package scheduler runs named jobs on 5-field cron schedules.
package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxSearch bounds the minute-by-minute search in Next (four years).
const maxSearch = 4 * 366 * 24 * 60

// Cron is a parsed cron expression:
// minute hour day-of-month month day-of-week.
type Cron struct {
	expr        string
	minutes     []int
	hours       []int
	daysOfMonth []int
	months      []int
	daysOfWeek  []int
	anyDOM      bool
	anyDOW      bool
}

type fieldSpec struct {
	name     string
	min, max int
}

var fieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// ParseCron parses a standard 5-field expression. Each field accepts *, n,
// n-m, lists (a,b,c) and steps (*/n, n-m/s, n/s). Day-of-week 7 is Sunday.
//
//	"0 * * * *"    every hour on the hour
//	"0 9 * * *"    daily at 09:00
//	"* * * * *"    every minute
//	"*/15 9-17 * * 1-5"
func ParseCron(expr string) (*Cron, error) {
	fields := strings.Fields(expr)
	if len(fields) != len(fieldSpecs) {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	var parsed [5][]int
	for i, spec := range fieldSpecs {
		values, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field %q: %w", spec.name, fields[i], err)
		}
		parsed[i] = values
	}

	dow := parsed[4]
	for i, d := range dow {
		if d == 7 {
			dow[i] = 0
		}
	}

	return &Cron{
		expr:        expr,
		minutes:     parsed[0],
		hours:       parsed[1],
		daysOfMonth: parsed[2],
		months:      parsed[3],
		daysOfWeek:  uniqueSorted(dow),
		anyDOM:      fields[2] == "*",
		anyDOW:      fields[4] == "*",
	}, nil
}

// MustParseCron is ParseCron for expressions known at compile time.
func MustParseCron(expr string) *Cron {
	c, err := ParseCron(expr)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Cron) String() string { return c.expr }

// Next returns the first matching minute strictly after after, evaluated in
// loc (UTC when nil). The zero time is returned when nothing matches within
// four years, e.g. "0 0 31 2 *".
func (c *Cron) Next(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc).Truncate(time.Minute).Add(time.Minute)

	for i := 0; i < maxSearch; i++ {
		if c.Matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

// Matches reports whether t (to the minute) satisfies the expression. When
// both day fields are restricted either may match, as in classic cron.
func (c *Cron) Matches(t time.Time) bool {
	if !contains(c.minutes, t.Minute()) || !contains(c.hours, t.Hour()) || !contains(c.months, int(t.Month())) {
		return false
	}

	dom := contains(c.daysOfMonth, t.Day())
	dow := contains(c.daysOfWeek, int(t.Weekday()))
	switch {
	case c.anyDOM && c.anyDOW:
		return true
	case c.anyDOM:
		return dow
	case c.anyDOW:
		return dom
	default:
		return dom || dow
	}
}

func parseField(field string, lo, hi int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(field, ",") {
		values, err := parsePart(part, lo, hi)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return uniqueSorted(out), nil
}

func parsePart(part string, lo, hi int) ([]int, error) {
	if part == "" {
		return nil, fmt.Errorf("empty value")
	}

	step := 1
	if base, s, ok := strings.Cut(part, "/"); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid step %q", s)
		}
		step = n
		part = base
		if !strings.Contains(part, "-") && part != "*" {
			start, err := atoiInRange(part, lo, hi)
			if err != nil {
				return nil, err
			}
			return stepRange(start, hi, step), nil
		}
	}

	start, end := lo, hi
	if part != "*" {
		if a, b, ok := strings.Cut(part, "-"); ok {
			var err error
			if start, err = atoiInRange(a, lo, hi); err != nil {
				return nil, err
			}
			if end, err = atoiInRange(b, lo, hi); err != nil {
				return nil, err
			}
			if start > end {
				return nil, fmt.Errorf("range %d-%d is reversed", start, end)
			}
		} else {
			v, err := atoiInRange(part, lo, hi)
			if err != nil {
				return nil, err
			}
			return []int{v}, nil
		}
	}
	return stepRange(start, end, step), nil
}

func atoiInRange(s string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("value %d out of range %d-%d", v, lo, hi)
	}
	return v, nil
}

func stepRange(start, end, step int) []int {
	out := make([]int, 0, (end-start)/step+1)
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out
}

func contains(values []int, v int) bool {
	i := sort.SearchInts(values, v)
	return i < len(values) && values[i] == v
}

func uniqueSorted(values []int) []int {
	sort.Ints(values)
	out := values[:0]
	for _, v := range values {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}
