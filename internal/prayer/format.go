package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Event is a named instant used by countdown displays: "Sehri", "Iftar", or
// one of the five prayers.
type Event struct {
	Name string
	Time time.Time
}

// ShortNames maps event names to status-bar abbreviations.
var ShortNames = map[string]string{
	"Sehri":   "S",
	"Iftar":   "I",
	"Fajr":    "F",
	"Sunrise": "Sr",
	"Dhuhr":   "D",
	"Asr":     "A",
	"Maghrib": "M",
	"Isha":    "Is",
}

// Events lists a day's displayable instants in chronological order.
func (t Times) Events() []Event {
	return []Event{
		{"Sehri", t.Sehri},
		{"Fajr", t.Fajr},
		{"Sunrise", t.Sunrise},
		{"Dhuhr", t.Dhuhr},
		{"Asr", t.Asr},
		{"Maghrib", t.Maghrib},
		{"Iftar", t.Iftar},
		{"Isha", t.Isha},
	}
}

// NextFastingEvent returns the next of Sehri/Iftar after now, or nil when
// both have passed for the day.
func (t Times) NextFastingEvent(now time.Time) *Event {
	if now.Before(t.Sehri) {
		return &Event{"Sehri", t.Sehri}
	}
	if now.Before(t.Iftar) {
		return &Event{"Iftar", t.Iftar}
	}
	return nil
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatData is the data passed to custom status templates.
type FormatData struct {
	Name      string // "Sehri" or "Iftar"
	ShortName string // "S" or "I"
	Time      string // formatted event time
	Remaining string // e.g. "2h 15m"
	Hours     int    // whole hours remaining
	Minutes   int    // remaining minutes after hours
}

// FormatEvent renders an event for one-line status output.
// timeFormat should be "15:04" for 24h or "3:04 PM" for 12h.
//
// If mode contains "{{", it is treated as a custom Go template string over
// FormatData, e.g. "{{.Name}} in {{.Remaining}}". Otherwise mode selects a
// built-in layout: "time", "remaining", "name-and-time", or the default
// "name-and-remaining".
func FormatEvent(e Event, now time.Time, mode, timeFormat string) string {
	d := e.Time.Sub(now)
	data := FormatData{
		Name:      e.Name,
		ShortName: ShortNames[e.Name],
		Time:      e.Time.Format(timeFormat),
		Remaining: FormatRemaining(d),
		Hours:     int(d.Hours()),
		Minutes:   int(d.Minutes()) % 60,
	}

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, data)
	}

	switch mode {
	case "time":
		return data.Time
	case "remaining":
		return data.Remaining
	case "name-and-time":
		return fmt.Sprintf("%s %s", data.Name, data.Time)
	default:
		return fmt.Sprintf("%s in %s", data.Name, data.Remaining)
	}
}

// formatCustom executes a user-provided Go template string against the data.
func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}
