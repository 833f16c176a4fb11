// Package ramadan holds the domain model: the Gregorian window of a Ramadan,
// the per-day calendar derived from it, and the assembled month data set.
package ramadan

import (
	"time"

	"github.com/smokyabdulrahman/ramadan-times/internal/hijri"
	"github.com/smokyabdulrahman/ramadan-times/internal/prayer"
)

// WindowSpanDays is the number of days between Start and End.
//
// Ramadan is astronomically 29 or 30 days depending on moon sighting. This
// implementation fixes End = Start + 29 days, so the inclusive Start..End
// walk yields 30 day records. The final record covers the possible 30th day;
// when the month turns out to be 29 days the last record is simply Eid eve.
const WindowSpanDays = 29

// TotalDays is the number of day records a window expands to.
const TotalDays = WindowSpanDays + 1

// Window is the Gregorian date range of one Ramadan. Immutable after
// resolution.
type Window struct {
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	Year       int              `json:"year"` // Gregorian year the window was resolved for
	Adjustment hijri.Adjustment `json:"adjustment"`
}

// Day is one calendar day of Ramadan with its computed times.
type Day struct {
	Date    time.Time    `json:"date"`
	Number  int          `json:"dayNumber"` // 1-based, contiguous
	IsToday bool         `json:"isToday"`
	Times   prayer.Times `json:"times"`
}

// Data is the full month data set consumed by the display and schedulers.
type Data struct {
	Window     Window `json:"window"`
	Days       []Day  `json:"days"`
	CurrentDay int    `json:"currentDay"` // 0 when today is outside the window
	TotalDays  int    `json:"totalDays"`
}

// CalendarDay is a bare day record before prayer times are attached.
type CalendarDay struct {
	Date    time.Time
	Number  int
	IsToday bool
}

// ResolveWindow resolves the Ramadan window for a Gregorian year. When the
// adjustment is enabled the start shifts by DaysToAdd calendar days before
// the end is derived, so both endpoints move together.
func ResolveWindow(gregorianYear int, adj hijri.Adjustment) (Window, error) {
	start, err := hijri.ResolveStart(gregorianYear)
	if err != nil {
		return Window{}, err
	}
	if adj.Enabled {
		start = start.AddDate(0, 0, adj.DaysToAdd)
	}
	return Window{
		Start:      start,
		End:        start.AddDate(0, 0, WindowSpanDays),
		Year:       gregorianYear,
		Adjustment: adj,
	}, nil
}

// CurrentWindow resolves the window that is current or upcoming relative to
// now: this year's window, or next year's once this year's has ended. It
// never returns an already-ended window.
func CurrentWindow(now time.Time, adj hijri.Adjustment) (Window, error) {
	w, err := ResolveWindow(now.Year(), adj)
	if err != nil {
		return Window{}, err
	}
	if startOfDay(now).After(w.End) {
		return ResolveWindow(now.Year()+1, adj)
	}
	return w, nil
}

// BuildDays expands a window into its ordered day records. It is a pure
// function of the window and now, so callers may rebuild at any time to
// refresh the IsToday flags.
func BuildDays(w Window, now time.Time) []CalendarDay {
	today := startOfDay(now.In(w.Start.Location()))
	days := make([]CalendarDay, 0, TotalDays)
	for d, n := w.Start, 1; !d.After(w.End); d, n = d.AddDate(0, 0, 1), n+1 {
		days = append(days, CalendarDay{
			Date:    d,
			Number:  n,
			IsToday: startOfDay(d).Equal(today),
		})
	}
	return days
}

// CurrentDayNumber returns the 1-based day number for now, or 0 when now
// falls outside the window.
func CurrentDayNumber(w Window, now time.Time) int {
	for _, d := range BuildDays(w, now) {
		if d.IsToday {
			return d.Number
		}
	}
	return 0
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
