// Package prayer computes the daily prayer instants and the derived
// Sehri/Iftar instants for a date and a location.
//
// The astronomical work is delegated to a Calculator (production code uses
// the Al Adhan API). This package wraps it with the validation and
// degrade-to-approximate policy the app needs: prayer times are
// ritual-relevant, so a blank screen is worse than a clearly-flagged
// approximate time.
package prayer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smokyabdulrahman/ramadan-times/internal/geo"
)

// SehriOffset is how long before Fajr the Sehri deadline is announced.
const SehriOffset = -10 * time.Minute

// Times holds every instant computed for one calendar day. All instants lie
// on the same calendar day as the date they were computed for.
type Times struct {
	Sehri   time.Time `json:"sehri"`
	Iftar   time.Time `json:"iftar"`
	Fajr    time.Time `json:"fajr"`
	Sunrise time.Time `json:"sunrise"`
	Dhuhr   time.Time `json:"dhuhr"`
	Asr     time.Time `json:"asr"`
	Sunset  time.Time `json:"sunset"`
	Maghrib time.Time `json:"maghrib"`
	Isha    time.Time `json:"isha"`

	// Approximate is set when any field came from the fixed fallback table
	// instead of a successful computation.
	Approximate bool `json:"approximate,omitempty"`
}

// Calculator produces the canonical prayer instants for a date and
// coordinates. Implementations only fill the seven canonical fields; Sehri
// and Iftar are derived by ComputeDay.
type Calculator interface {
	Compute(ctx context.Context, date time.Time, coords geo.Coordinates) (Times, error)
}

// fallbackMinutes is the fixed minute-of-day table used when a computed
// instant is malformed or the whole computation fails.
var fallbackMinutes = map[string]int{
	"sehri":   290,  // 04:50
	"fajr":    300,  // 05:00
	"sunrise": 360,  // 06:00
	"dhuhr":   720,  // 12:00
	"asr":     900,  // 15:00
	"sunset":  1080, // 18:00
	"maghrib": 1080, // 18:00
	"iftar":   1080, // 18:00
	"isha":    1170, // 19:30
}

// ComputeDay computes the full Times set for a calendar day.
//
// Invalid coordinates are a hard error: silently computing times for a
// guessed location must never happen. Every other failure degrades: a
// malformed instant is replaced by its fallback entry, and a failing
// Calculator yields the complete fallback table. Degraded output carries
// Approximate = true.
func ComputeDay(ctx context.Context, calc Calculator, date time.Time, coords geo.Coordinates) (Times, error) {
	if err := coords.Validate(); err != nil {
		return Times{}, fmt.Errorf("cannot compute prayer times: %w", err)
	}

	base := startOfDay(date)

	computed, err := calc.Compute(ctx, date, coords)
	if err != nil {
		log.Warn().Err(err).Str("date", base.Format("2006-01-02")).
			Msg("prayer time computation failed, using fallback table")
		return FallbackTimes(date), nil
	}

	t := Times{}
	t.Fajr = normalize(computed.Fajr, base, "fajr", &t.Approximate)
	t.Sunrise = normalize(computed.Sunrise, base, "sunrise", &t.Approximate)
	t.Dhuhr = normalize(computed.Dhuhr, base, "dhuhr", &t.Approximate)
	t.Asr = normalize(computed.Asr, base, "asr", &t.Approximate)
	t.Sunset = normalize(computed.Sunset, base, "sunset", &t.Approximate)
	t.Maghrib = normalize(computed.Maghrib, base, "maghrib", &t.Approximate)
	t.Isha = normalize(computed.Isha, base, "isha", &t.Approximate)

	// Sehri ends shortly before Fajr; Iftar is at Maghrib.
	t.Sehri = t.Fajr.Add(SehriOffset)
	t.Iftar = t.Maghrib

	return t, nil
}

// FallbackTimes returns the complete fallback table anchored on date's day.
func FallbackTimes(date time.Time) Times {
	base := startOfDay(date)
	return Times{
		Sehri:       fallbackInstant(base, "sehri"),
		Iftar:       fallbackInstant(base, "iftar"),
		Fajr:        fallbackInstant(base, "fajr"),
		Sunrise:     fallbackInstant(base, "sunrise"),
		Dhuhr:       fallbackInstant(base, "dhuhr"),
		Asr:         fallbackInstant(base, "asr"),
		Sunset:      fallbackInstant(base, "sunset"),
		Maghrib:     fallbackInstant(base, "maghrib"),
		Isha:        fallbackInstant(base, "isha"),
		Approximate: true,
	}
}

// normalize re-anchors a computed instant onto base's calendar day, keeping
// only its clock time. The underlying calculation may return instants whose
// date component drifts across midnight boundaries; the calendar view needs
// every instant on its own day. A zero instant falls back to the table and
// marks the result approximate.
func normalize(instant, base time.Time, name string, approximate *bool) time.Time {
	if instant.IsZero() {
		log.Warn().Str("prayer", name).Str("date", base.Format("2006-01-02")).
			Msg("invalid prayer instant, using fallback")
		*approximate = true
		return fallbackInstant(base, name)
	}
	return time.Date(base.Year(), base.Month(), base.Day(),
		instant.Hour(), instant.Minute(), 0, 0, base.Location())
}

func fallbackInstant(base time.Time, name string) time.Time {
	return base.Add(time.Duration(fallbackMinutes[name]) * time.Minute)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
