// Package expiry computes cache expiry instants and reads and writes the
// persisted envelope that carries them.
package expiry

import (
	"strings"
	"time"
)

// Interval names the unit a relative expiry is measured in. Matching is
// case-insensitive.
type Interval string

const (
	Year    Interval = "year"
	Quarter Interval = "quarter"
	Month   Interval = "month"
	Week    Interval = "week"
	Day     Interval = "day"
	Hour    Interval = "hour"
	Minute  Interval = "minute"
	Second  Interval = "second"
)

const (
	DefaultInterval = Minute
	DefaultUnits    = 5

	// fallbackSpan applies to any interval DateAdd does not recognize.
	fallbackSpan = 5 * time.Minute
)

// DateAdd returns base advanced by units of interval. Year, quarter and month
// use calendar arithmetic, so day-of-month overflow rolls into the following
// month (Jan 31 + 1 month is Mar 2 or Mar 3). The remaining units add exact
// durations. An unrecognized interval advances by five minutes whatever units
// is.
//
// Sub-second precision of base is dropped before adding.
func DateAdd(base time.Time, interval Interval, units int) time.Time {
	ret := base.Truncate(time.Second)
	switch strings.ToLower(string(interval)) {
	case string(Year):
		return ret.AddDate(units, 0, 0)
	case string(Quarter):
		return ret.AddDate(0, 3*units, 0)
	case string(Month):
		return ret.AddDate(0, units, 0)
	case string(Week):
		return addDays(ret, 7*units)
	case string(Day):
		return addDays(ret, units)
	case string(Hour):
		return addSeconds(ret, units, 3600)
	case string(Minute):
		return addSeconds(ret, units, 60)
	case string(Second):
		return addSeconds(ret, units, 1)
	default:
		return ret.Add(fallbackSpan)
	}
}

// addDays steps whole 24h days. The calendar step runs in UTC so a DST change
// in t's location cannot stretch or shrink a day; time.Duration would overflow
// past roughly 292 years.
func addDays(t time.Time, days int) time.Time {
	return t.UTC().AddDate(0, 0, days).In(t.Location())
}

// addSeconds expects t to carry no sub-second part.
func addSeconds(t time.Time, units int, perUnit int64) time.Time {
	return time.Unix(t.Unix()+int64(units)*perUnit, 0).In(t.Location())
}

// Option adjusts the span used by After. Omitted options fall back to
// DefaultInterval and DefaultUnits, so an explicit zero count stays distinct
// from no count at all.
type Option func(*span)

type span struct {
	interval Interval
	units    int
}

// WithInterval sets the unit of the span.
func WithInterval(interval Interval) Option {
	return func(s *span) { s.interval = interval }
}

// WithUnits sets how many units the span covers.
func WithUnits(units int) Option {
	return func(s *span) { s.units = units }
}

// After resolves opts against the defaults and returns DateAdd(base, ...).
func After(base time.Time, opts ...Option) time.Time {
	s := span{interval: DefaultInterval, units: DefaultUnits}
	for _, opt := range opts {
		opt(&s)
	}
	return DateAdd(base, s.interval, s.units)
}
