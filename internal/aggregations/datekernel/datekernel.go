// Copyright 2021 FerretDB Inc.
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

// Package datekernel implements calendar-aware date stepping and
// differencing (spec.md §4.5): $dateAdd/$dateSubtract's arithmetic, and the
// unit scaling $densify and the window engine's $derivative/$integral use.
package datekernel

import (
	"errors"
	"time"
)

// ErrUnknownUnit is returned for a unit string outside the supported set.
var ErrUnknownUnit = errors.New("datekernel: unknown unit")

// Unit is a calendar or fixed-duration stepping unit.
type Unit string

// Supported units, per spec.md §4.5.
const (
	Millisecond Unit = "millisecond"
	Second      Unit = "second"
	Minute      Unit = "minute"
	Hour        Unit = "hour"
	Day         Unit = "day"
	Week        Unit = "week"
	Month       Unit = "month"
	Quarter     Unit = "quarter"
	Year        Unit = "year"
)

// Add steps t by n units. Month/quarter/year arithmetic preserves the
// day-of-month when the resulting month has that many days, else overflows
// into the following month(s) (e.g. Jan 31 + 1 month -> Mar 3 in a
// non-leap year; Feb 29 + 1 year -> Mar 1 in a non-leap year), exactly
// following Go's time.AddDate overflow behavior.
func Add(t time.Time, n int64, unit Unit) (time.Time, error) {
	switch unit {
	case Millisecond:
		return t.Add(time.Duration(n) * time.Millisecond), nil
	case Second:
		return t.Add(time.Duration(n) * time.Second), nil
	case Minute:
		return t.Add(time.Duration(n) * time.Minute), nil
	case Hour:
		return t.Add(time.Duration(n) * time.Hour), nil
	case Day:
		return t.AddDate(0, 0, int(n)), nil
	case Week:
		return t.AddDate(0, 0, int(n)*7), nil
	case Month:
		return t.AddDate(0, int(n), 0), nil
	case Quarter:
		return t.AddDate(0, int(n)*3, 0), nil
	case Year:
		return t.AddDate(int(n), 0, 0), nil
	default:
		return time.Time{}, ErrUnknownUnit
	}
}

// ParseUnit validates s against the supported unit set.
func ParseUnit(s string) (Unit, bool) {
	switch Unit(s) {
	case Millisecond, Second, Minute, Hour, Day, Week, Month, Quarter, Year:
		return Unit(s), true
	default:
		return "", false
	}
}

// MillisPerUnit returns the fixed millisecond scale of unit, for units that
// have one (everything except month/quarter/year, whose length varies).
func MillisPerUnit(unit Unit) (int64, bool) {
	switch unit {
	case Millisecond:
		return 1, true
	case Second:
		return 1000, true
	case Minute:
		return 60 * 1000, true
	case Hour:
		return 60 * 60 * 1000, true
	case Day:
		return 24 * 60 * 60 * 1000, true
	case Week:
		return 7 * 24 * 60 * 60 * 1000, true
	default:
		return 0, false
	}
}

// Diff returns (to - from) expressed in unit. For fixed-scale units it counts
// the unit boundaries crossed, dividing each epoch-millisecond value by the
// unit's length; for month/quarter/year it counts whole months elapsed (see
// monthsBetween), so a trailing partial month is not counted, and quarters
// and years are those whole months divided by 3 and 12.
func Diff(from, to time.Time, unit Unit) (int64, error) {
	if ms, ok := MillisPerUnit(unit); ok {
		return to.UnixMilli()/ms - from.UnixMilli()/ms, nil
	}

	switch unit {
	case Month:
		return monthsBetween(from, to), nil
	case Quarter:
		return monthsBetween(from, to) / 3, nil
	case Year:
		return monthsBetween(from, to) / 12, nil
	default:
		return 0, ErrUnknownUnit
	}
}

// monthsBetween counts whole months crossed from -> to, negative if to < from.
func monthsBetween(from, to time.Time) int64 {
	sign := int64(1)
	if to.Before(from) {
		from, to = to, from
		sign = -1
	}

	months := int64(to.Year()-from.Year())*12 + int64(to.Month()-from.Month())
	if to.Day() < from.Day() {
		months--
	}

	return sign * months
}
