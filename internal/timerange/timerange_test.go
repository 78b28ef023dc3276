package timerange

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)

func TestResolve_Today(t *testing.T) {
	r := Resolve(Params{Days: 0, Now: testNow})

	wantStart := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", r.Start, wantStart)
	}
	if !r.End.Equal(testNow) {
		t.Errorf("End = %v, want %v", r.End, testNow)
	}
	if r.Label != "Today" {
		t.Errorf("Label = %q, want Today", r.Label)
	}
	if r.Custom {
		t.Error("Custom should be false for a rolling window")
	}
}

func TestResolve_RollingDays(t *testing.T) {
	r := Resolve(Params{Days: 7, Now: testNow})

	wantStart := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", r.Start, wantStart)
	}
	if !r.End.Equal(testNow) {
		t.Errorf("End = %v, want %v", r.End, testNow)
	}
	if r.Label != "7 days" {
		t.Errorf("Label = %q, want \"7 days\"", r.Label)
	}
	if r.Days != 7 {
		t.Errorf("Days = %d, want 7", r.Days)
	}
}

func TestResolve_ExplicitDates(t *testing.T) {
	r := Resolve(Params{
		StartDate: "2025-06-01",
		EndDate:   "2025-06-10",
		Now:       testNow,
	})

	wantStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// End date is the inclusive calendar day, so the exclusive bound is the
	// start of June 11.
	wantEnd := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	if !r.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", r.Start, wantStart)
	}
	if !r.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", r.End, wantEnd)
	}
	if !r.Custom {
		t.Error("Custom should be true for explicit bounds")
	}
	if r.Days != 0 {
		t.Errorf("Days = %d, want 0 for custom range", r.Days)
	}
}

func TestResolve_ExplicitDatesWinOverDays(t *testing.T) {
	r := Resolve(Params{
		Days:      30,
		StartDate: "2025-06-01",
		EndDate:   "2025-06-02",
		Now:       testNow,
	})

	if !r.Custom {
		t.Error("explicit dates should take precedence over days")
	}
	if got := r.Duration(); got != 48*time.Hour {
		t.Errorf("Duration = %v, want 48h", got)
	}
}

func TestResolve_MissingBoundDefaults(t *testing.T) {
	t.Run("missing start", func(t *testing.T) {
		r := Resolve(Params{EndDate: "2025-06-14", Now: testNow})
		wantStart := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
		if !r.Start.Equal(wantStart) {
			t.Errorf("Start = %v, want today 00:00 UTC", r.Start)
		}
	})

	t.Run("missing end", func(t *testing.T) {
		r := Resolve(Params{StartDate: "2025-06-10", Now: testNow})
		if !r.End.Equal(testNow) {
			t.Errorf("End = %v, want now", r.End)
		}
	})
}

func TestResolve_RFC3339Bounds(t *testing.T) {
	r := Resolve(Params{
		StartDate: "2025-06-10T06:00:00Z",
		EndDate:   "2025-06-10T18:00:00Z",
		Now:       testNow,
	})

	if got := r.Duration(); got != 12*time.Hour {
		t.Errorf("Duration = %v, want 12h", got)
	}
}

// TestResolve_MalformedDatesFailClosed verifies that unparseable date strings
// are treated as absent and the request falls back to the days branch.
func TestResolve_MalformedDatesFailClosed(t *testing.T) {
	r := Resolve(Params{
		Days:      3,
		StartDate: "not-a-date",
		EndDate:   "13/06/2025",
		Now:       testNow,
	})

	if r.Custom {
		t.Error("malformed dates should fall through to the days branch")
	}
	if r.Label != "3 days" {
		t.Errorf("Label = %q, want \"3 days\"", r.Label)
	}
}

func TestResolve_InvertedBoundsSwapped(t *testing.T) {
	r := Resolve(Params{
		StartDate: "2025-06-10",
		EndDate:   "2025-06-01",
		Now:       testNow,
	})

	if r.End.Before(r.Start) {
		t.Errorf("Start %v must not be after End %v", r.Start, r.End)
	}
}

func TestPreviousPeriod_Adjacency(t *testing.T) {
	ranges := []Range{
		Resolve(Params{Days: 0, Now: testNow}),
		Resolve(Params{Days: 1, Now: testNow}),
		Resolve(Params{Days: 7, Now: testNow}),
		Resolve(Params{Days: 30, Now: testNow}),
		Resolve(Params{StartDate: "2025-06-01", EndDate: "2025-06-10", Now: testNow}),
	}

	for _, r := range ranges {
		prev := PreviousPeriod(r)
		if !prev.End.Equal(r.Start) {
			t.Errorf("%s: previous.End = %v, want %v", r.Label, prev.End, r.Start)
		}
		if prev.Duration() != r.Duration() {
			t.Errorf("%s: previous duration %v != %v", r.Label, prev.Duration(), r.Duration())
		}
	}
}

func TestRange_Contains(t *testing.T) {
	r := Resolve(Params{StartDate: "2025-06-01", EndDate: "2025-06-10", Now: testNow})

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"at start", r.Start, true},
		{"inside", r.Start.Add(time.Hour), true},
		{"at end (exclusive)", r.End, false},
		{"before", r.Start.Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}
