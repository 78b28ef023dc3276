// Package timerange resolves request parameters into canonical UTC query windows.
package timerange

import (
	"fmt"
	"time"
)

const dateOnly = "2006-01-02"

// Params are the raw time-window parameters of a dashboard or alert query.
// StartDate and EndDate, when present, take precedence over Days. Now is the
// reference instant; the zero value means time.Now().
type Params struct {
	Days      int
	StartDate string
	EndDate   string
	Now       time.Time
}

// Range is a half-open UTC interval [Start, End). Days is the rolling-window
// size the range was resolved from; Custom marks a range built from explicit
// bounds, in which case Days carries no meaning.
type Range struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Days   int       `json:"days"`
	Custom bool      `json:"custom"`
	Label  string    `json:"label"`
}

// Duration returns the length of the interval.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether t falls inside the half-open interval.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Resolve turns request parameters into a canonical UTC range.
//
// Explicit StartDate/EndDate win over Days. A date-only StartDate anchors to
// 00:00:00 UTC of that day; a date-only EndDate is the inclusive calendar day,
// converted to the exclusive start of the next UTC day. Malformed date strings
// are treated as absent rather than rejected, so a request with two bad dates
// falls through to the Days branch.
func Resolve(p Params) Range {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	if p.StartDate != "" || p.EndDate != "" {
		start, startOK := parseBound(p.StartDate, false)
		end, endOK := parseBound(p.EndDate, true)
		if startOK || endOK {
			if !startOK {
				start = dayStart(now)
			}
			if !endOK {
				end = now
			}
			if end.Before(start) {
				start, end = end, start
			}
			return Range{Start: start, End: end, Custom: true, Label: "Custom range"}
		}
		// Both bounds malformed: fall through to the Days branch.
	}

	if p.Days <= 0 {
		return Range{Start: dayStart(now), End: now, Days: 0, Label: "Today"}
	}

	start := dayStart(now.Add(-time.Duration(p.Days) * 24 * time.Hour))
	return Range{
		Start: start,
		End:   now,
		Days:  p.Days,
		Label: fmt.Sprintf("%d days", p.Days),
	}
}

// PreviousPeriod returns the interval of identical duration immediately
// preceding r, ending exactly at r.Start.
func PreviousPeriod(r Range) Range {
	d := r.Duration()
	return Range{
		Start:  r.Start.Add(-d),
		End:    r.Start,
		Days:   r.Days,
		Custom: r.Custom,
		Label:  "Previous period",
	}
}

// parseBound parses an explicit bound. Date-only end bounds are converted to
// the exclusive start of the following UTC day.
func parseBound(s string, isEnd bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(dateOnly, s, time.UTC); err == nil {
		if isEnd {
			return t.AddDate(0, 0, 1), true
		}
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
