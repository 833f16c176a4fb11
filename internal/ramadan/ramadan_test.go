package ramadan

import (
	"testing"
	"time"

	"github.com/smokyabdulrahman/ramadan-times/internal/hijri"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// ResolveWindow
// ---------------------------------------------------------------------------

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		year      int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{2024, date(2024, 3, 11), date(2024, 4, 9)},
		{2025, date(2025, 3, 1), date(2025, 3, 30)},
		{2026, date(2026, 2, 18), date(2026, 3, 19)},
	}

	for _, tt := range tests {
		w, err := ResolveWindow(tt.year, hijri.Adjustment{})
		if err != nil {
			t.Fatalf("ResolveWindow(%d) error: %v", tt.year, err)
		}
		if !w.Start.Equal(tt.wantStart) {
			t.Errorf("ResolveWindow(%d) start = %s, want %s",
				tt.year, w.Start.Format("2006-01-02"), tt.wantStart.Format("2006-01-02"))
		}
		if !w.End.Equal(tt.wantEnd) {
			t.Errorf("ResolveWindow(%d) end = %s, want %s",
				tt.year, w.End.Format("2006-01-02"), tt.wantEnd.Format("2006-01-02"))
		}
		if w.Year != tt.year {
			t.Errorf("ResolveWindow(%d) year = %d", tt.year, w.Year)
		}
	}
}

func TestResolveWindow_SpanIsFixed(t *testing.T) {
	w, err := ResolveWindow(2025, hijri.Adjustment{})
	if err != nil {
		t.Fatalf("ResolveWindow error: %v", err)
	}
	if got := w.End.Sub(w.Start); got != WindowSpanDays*24*time.Hour {
		t.Errorf("window span = %v, want %d days", got, WindowSpanDays)
	}
}

func TestResolveWindow_Adjustment(t *testing.T) {
	tests := []struct {
		name      string
		adj       hijri.Adjustment
		wantStart time.Time
	}{
		{"disabled", hijri.Adjustment{}, date(2025, 3, 1)},
		{"disabled with stale days", hijri.Adjustment{DaysToAdd: 2}, date(2025, 3, 1)},
		{"plus one", hijri.Adjustment{Enabled: true, DaysToAdd: 1}, date(2025, 3, 2)},
		{"minus one", hijri.Adjustment{Enabled: true, DaysToAdd: -1}, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(2025, tt.adj)
			if err != nil {
				t.Fatalf("ResolveWindow error: %v", err)
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("start = %s, want %s",
					w.Start.Format("2006-01-02"), tt.wantStart.Format("2006-01-02"))
			}
			// Both endpoints shift together.
			if got := w.End.Sub(w.Start); got != WindowSpanDays*24*time.Hour {
				t.Errorf("adjusted span = %v, want %d days", got, WindowSpanDays)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CurrentWindow
// ---------------------------------------------------------------------------

func TestCurrentWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{"before this year's window", date(2025, 1, 15), date(2025, 3, 1)},
		{"inside the window", date(2025, 3, 10), date(2025, 3, 1)},
		{"last day of the window", date(2025, 3, 30), date(2025, 3, 1)},
		{"after the window rolls to next year", date(2025, 6, 1), date(2026, 2, 18)},
		{"late december rolls to next year", date(2025, 12, 31), date(2026, 2, 18)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := CurrentWindow(tt.now, hijri.Adjustment{})
			if err != nil {
				t.Fatalf("CurrentWindow error: %v", err)
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("start = %s, want %s",
					w.Start.Format("2006-01-02"), tt.wantStart.Format("2006-01-02"))
			}
		})
	}
}

func TestCurrentWindow_NeverEnded(t *testing.T) {
	// Whatever now is, the returned window must not already be over.
	for _, now := range []time.Time{
		date(2024, 1, 1), date(2024, 7, 1), date(2025, 4, 1),
		date(2026, 3, 20), date(2026, 12, 31),
	} {
		w, err := CurrentWindow(now, hijri.Adjustment{})
		if err != nil {
			t.Fatalf("CurrentWindow(%s) error: %v", now.Format("2006-01-02"), err)
		}
		if now.Truncate(24 * time.Hour).After(w.End) {
			t.Errorf("CurrentWindow(%s) returned ended window ending %s",
				now.Format("2006-01-02"), w.End.Format("2006-01-02"))
		}
	}
}

// ---------------------------------------------------------------------------
// BuildDays
// ---------------------------------------------------------------------------

func TestBuildDays(t *testing.T) {
	w, err := ResolveWindow(2025, hijri.Adjustment{})
	if err != nil {
		t.Fatalf("ResolveWindow error: %v", err)
	}

	days := BuildDays(w, date(2025, 3, 5))

	if len(days) != TotalDays {
		t.Fatalf("BuildDays returned %d days, want %d", len(days), TotalDays)
	}
	if !days[0].Date.Equal(w.Start) {
		t.Errorf("first day = %s, want window start", days[0].Date.Format("2006-01-02"))
	}
	if !days[len(days)-1].Date.Equal(w.End) {
		t.Errorf("last day = %s, want window end", days[len(days)-1].Date.Format("2006-01-02"))
	}

	for i, d := range days {
		if d.Number != i+1 {
			t.Errorf("day %d has number %d", i, d.Number)
		}
		if i > 0 {
			gap := d.Date.Sub(days[i-1].Date)
			if gap != 24*time.Hour {
				t.Errorf("gap between day %d and %d is %v", i, i+1, gap)
			}
		}
	}
}

func TestBuildDays_IsToday(t *testing.T) {
	w, err := ResolveWindow(2025, hijri.Adjustment{})
	if err != nil {
		t.Fatalf("ResolveWindow error: %v", err)
	}

	tests := []struct {
		name    string
		now     time.Time
		wantDay int // 0 = no day flagged
	}{
		{"first day", date(2025, 3, 1), 1},
		{"first day evening", time.Date(2025, 3, 1, 22, 30, 0, 0, time.UTC), 1},
		{"mid month", date(2025, 3, 15), 15},
		{"last day", date(2025, 3, 30), 30},
		{"before the window", date(2025, 2, 20), 0},
		{"after the window", date(2025, 4, 2), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := BuildDays(w, tt.now)

			flagged := 0
			var number int
			for _, d := range days {
				if d.IsToday {
					flagged++
					number = d.Number
				}
			}

			if tt.wantDay == 0 {
				if flagged != 0 {
					t.Errorf("expected no day flagged, got day %d", number)
				}
				return
			}
			if flagged != 1 {
				t.Fatalf("expected exactly one day flagged, got %d", flagged)
			}
			if number != tt.wantDay {
				t.Errorf("flagged day %d, want %d", number, tt.wantDay)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CurrentDayNumber
// ---------------------------------------------------------------------------

func TestCurrentDayNumber(t *testing.T) {
	w, err := ResolveWindow(2025, hijri.Adjustment{})
	if err != nil {
		t.Fatalf("ResolveWindow error: %v", err)
	}

	if got := CurrentDayNumber(w, date(2025, 3, 1)); got != 1 {
		t.Errorf("CurrentDayNumber on start = %d, want 1", got)
	}
	if got := CurrentDayNumber(w, date(2025, 3, 30)); got != 30 {
		t.Errorf("CurrentDayNumber on end = %d, want 30", got)
	}
	if got := CurrentDayNumber(w, date(2025, 5, 1)); got != 0 {
		t.Errorf("CurrentDayNumber outside window = %d, want 0", got)
	}
}
