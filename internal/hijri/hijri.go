// Package hijri converts Gregorian dates to the tabular Islamic (civil)
// calendar and resolves the Gregorian window of Ramadan for a given year.
//
// The tabular calendar is an arithmetic approximation: real Ramadan start
// dates depend on local moon sighting and may differ by a day. Regional
// practice is accommodated through Adjustment rather than by changing the
// arithmetic.
package hijri

import (
	"fmt"
	"time"
)

// islamicEpoch is the Julian day number of 1 Muharram 1 AH
// (16 July 622 CE, civil/Friday epoch).
const islamicEpoch = 1948440

// Ramadan is month 9 of the Hijri calendar.
const Ramadan = 9

// ErrNoRamadanStart is returned when no 1 Ramadan falls inside the searched
// Gregorian year. With the tabular calendar this cannot happen for any real
// year, so it signals a configuration or arithmetic fault, not a condition
// to retry.
var ErrNoRamadanStart = fmt.Errorf("no Ramadan start found in year")

// Adjustment shifts the resolved Ramadan start to match regional
// moon-sighting practice (e.g. +1 day for the Indian subcontinent).
type Adjustment struct {
	Enabled   bool   `json:"enabled"`
	DaysToAdd int    `json:"daysToAdd"`
	Reason    string `json:"reason,omitempty"`
}

// Date is a date in the Hijri calendar.
type Date struct {
	Year  int
	Month int
	Day   int
}

// FromGregorian converts the calendar day of t to its tabular Hijri date.
// Only the year, month, and day of t are used; the time of day is ignored.
func FromGregorian(t time.Time) Date {
	return fromJDN(gregorianJDN(t.Year(), int(t.Month()), t.Day()))
}

// gregorianJDN returns the Julian day number of a Gregorian calendar date.
func gregorianJDN(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// fromJDN converts a Julian day number to a tabular Hijri date.
func fromJDN(jdn int) Date {
	l := jdn - islamicEpoch + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29
	month := (24 * l) / 709
	day := l - (709*month)/24
	year := 30*n + j - 30
	return Date{Year: year, Month: month, Day: day}
}

// ResolveStart finds the Gregorian date of 1 Ramadan within the given
// Gregorian year, before any adjustment. The returned time is midnight UTC.
func ResolveStart(gregorianYear int) (time.Time, error) {
	d := time.Date(gregorianYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 366; i++ {
		h := FromGregorian(d)
		if h.Month == Ramadan && h.Day == 1 {
			return d, nil
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, fmt.Errorf("%w %d", ErrNoRamadanStart, gregorianYear)
}
