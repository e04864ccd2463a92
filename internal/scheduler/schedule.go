// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scheduler fires jobs on weekday/hour windows, cron style, and
// lets operators trigger the same jobs by hand.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Schedule fires at a fixed minute of every selected hour on selected days.
type Schedule struct {
	days   [7]bool
	hours  [24]bool
	minute int
}

// Parse builds a Schedule. days is a comma list of names or ranges
// ("mon-fri", "sat,sun", "*"); hours is a comma list of hours or ranges
// ("7-18", "17", "*").
func Parse(days, hours string, minute int) (Schedule, error) {
	var s Schedule
	if minute < 0 || minute > 59 {
		return s, fmt.Errorf("minute %d out of range", minute)
	}
	s.minute = minute

	err := parseList(days, func(item string) error {
		lo, hi, err := parseRange(item, func(v string) (int, error) {
			d, ok := weekdays[strings.ToLower(v)]
			if !ok {
				return 0, fmt.Errorf("unknown weekday %q", v)
			}
			return int(d), nil
		}, 0, 6)
		if err != nil {
			return err
		}
		// Ranges may wrap the week ("fri-mon").
		for d := lo; ; d = (d + 1) % 7 {
			s.days[d] = true
			if d == hi {
				break
			}
		}
		return nil
	})
	if err != nil {
		return s, fmt.Errorf("parse days %q: %w", days, err)
	}

	err = parseList(hours, func(item string) error {
		lo, hi, err := parseRange(item, func(v string) (int, error) {
			h, err := strconv.Atoi(v)
			if err != nil || h < 0 || h > 23 {
				return 0, fmt.Errorf("invalid hour %q", v)
			}
			return h, nil
		}, 0, 23)
		if err != nil {
			return err
		}
		if lo > hi {
			return fmt.Errorf("hour range %q is reversed", item)
		}
		for h := lo; h <= hi; h++ {
			s.hours[h] = true
		}
		return nil
	})
	if err != nil {
		return s, fmt.Errorf("parse hours %q: %w", hours, err)
	}
	return s, nil
}

// MustParse is Parse that panics on error, for fixed schedules.
func MustParse(days, hours string, minute int) Schedule {
	s, err := Parse(days, hours, minute)
	if err != nil {
		panic(err)
	}
	return s
}

func parseList(list string, each func(string) error) error {
	list = strings.TrimSpace(list)
	if list == "" {
		return fmt.Errorf("empty list")
	}
	for _, item := range strings.Split(list, ",") {
		if err := each(strings.TrimSpace(item)); err != nil {
			return err
		}
	}
	return nil
}

func parseRange(item string, value func(string) (int, error), min, max int) (int, int, error) {
	if item == "*" {
		return min, max, nil
	}
	from, to, isRange := strings.Cut(item, "-")
	lo, err := value(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := value(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// Next returns the first fire time strictly after t, in t's location.
// A schedule with no days or hours never fires and returns the zero time.
func (s Schedule) Next(t time.Time) time.Time {
	loc := t.Location()
	y, m, d := t.Date()
	for day := 0; day <= 7; day++ {
		for h := 0; h < 24; h++ {
			if !s.hours[h] {
				continue
			}
			c := time.Date(y, m, d+day, h, s.minute, 0, 0, loc)
			if !s.days[c.Weekday()] || !c.After(t) {
				continue
			}
			return c
		}
	}
	return time.Time{}
}
