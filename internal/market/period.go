package market

import "time"

// Cadence is the granularity at which bars are aggregated or an indicator
// is computed.
type Cadence int

const (
	Daily Cadence = iota
	Weekly
	Monthly
)

func (c Cadence) String() string {
	switch c {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// IsPeriodEnd reports whether d closes a period of the given cadence:
// Daily is always true, Weekly ends on Friday, Monthly ends on the last
// calendar day of the month.
func IsPeriodEnd(cadence Cadence, d time.Time) bool {
	switch cadence {
	case Daily:
		return true
	case Weekly:
		return d.Weekday() == time.Friday
	case Monthly:
		return d.AddDate(0, 0, 1).Day() == 1
	default:
		return false
	}
}

// Convert aggregates daily bars into one output bar per finalized period.
// A period's close is its last included bar's close; open/high/low are
// the aggregates across the period's bars. If asOf is non-zero and falls
// mid-period, a trailing provisional bar is appended whose close is the
// close of the latest bar on or before asOf.
func Convert(bars Series, cadence Cadence, asOf time.Time) Series {
	if cadence == Daily {
		return bars.Slice(time.Time{}, asOf)
	}

	// periodEnd is the calendar date that closes d's period.
	periodEnd := func(d time.Time) time.Time {
		if cadence == Monthly {
			return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, d.Location())
		}
		return time.Date(d.Year(), d.Month(), d.Day()+(int(time.Friday)-int(d.Weekday())+7)%7, 0, 0, 0, 0, d.Location())
	}

	var out Series
	var cur *Bar
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	for _, b := range bars {
		if !asOf.IsZero() && b.Date.After(asOf) {
			break
		}
		if cur != nil && !periodEnd(cur.Date).Equal(periodEnd(b.Date)) {
			// The previous period's end date had no bar; it closed anyway.
			flush()
		}
		if cur == nil {
			fresh := b
			cur = &fresh
		} else {
			cur.High = max(cur.High, b.High)
			cur.Low = min(cur.Low, b.Low)
			cur.Close = b.Close
			cur.AdjustedClose = b.AdjustedClose
			cur.Volume += b.Volume
			cur.Date = b.Date
		}
		if IsPeriodEnd(cadence, b.Date) {
			flush()
		}
	}
	if cur != nil && !asOf.IsZero() {
		// asOf fell mid-period: the accumulated partial bar is provisional.
		// With no asOf, only finalized periods are emitted.
		out = append(out, *cur)
	}
	return out
}
