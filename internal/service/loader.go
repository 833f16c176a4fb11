// Package service drives the load cycle: coordinates, the current Ramadan
// window, per-day prayer times, the cache, and notification scheduling.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smokyabdulrahman/ramadan-times/internal/cache"
	"github.com/smokyabdulrahman/ramadan-times/internal/geo"
	"github.com/smokyabdulrahman/ramadan-times/internal/notify"
	"github.com/smokyabdulrahman/ramadan-times/internal/prayer"
	"github.com/smokyabdulrahman/ramadan-times/internal/ramadan"
	"github.com/smokyabdulrahman/ramadan-times/internal/store"
)

// Loader runs the load cycle and owns the observable state.
type Loader struct {
	*State

	gate      *geo.Gate
	calc      prayer.Calculator
	cache     *cache.Cache
	scheduler *notify.Scheduler
	settings  *store.Store
	now       func() time.Time

	// loadMu serializes load cycles: a second Load started while one is in
	// flight waits and is then satisfied from the fresh cache.
	loadMu chanMutex
}

// Option configures a Loader.
type Option func(*Loader)

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// NewLoader wires a Loader from its collaborators. scheduler may be nil to
// disable notification scheduling (e.g. for read-only display commands).
func NewLoader(gate *geo.Gate, calc prayer.Calculator, c *cache.Cache, scheduler *notify.Scheduler, settings *store.Store, opts ...Option) *Loader {
	l := &Loader{
		State:     NewState(),
		gate:      gate,
		calc:      calc,
		cache:     c,
		scheduler: scheduler,
		settings:  settings,
		now:       time.Now,
		loadMu:    make(chanMutex, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load produces the current Ramadan data set, from cache when fresh, else
// by recomputation. force skips the cache read (not the write). The
// context cancels the cycle between steps; a cancelled cycle publishes
// nothing.
func (l *Loader) Load(ctx context.Context, force bool) (*ramadan.Data, error) {
	if err := l.loadMu.lock(ctx); err != nil {
		return nil, err
	}
	defer l.loadMu.unlock()

	l.set(Snapshot{Data: l.Snapshot().Data, Loading: true, LastUpdate: l.Snapshot().LastUpdate})

	data, err := l.load(ctx, force)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Torn-down context: leave the published state untouched.
			return nil, err
		}
		l.set(Snapshot{Data: l.Snapshot().Data, Err: err, LastUpdate: l.Snapshot().LastUpdate})
		return nil, err
	}

	l.set(Snapshot{Data: data, LastUpdate: l.now()})
	return data, nil
}

func (l *Loader) load(ctx context.Context, force bool) (*ramadan.Data, error) {
	now := l.now()
	adj := l.settings.DateAdjustment()

	window, err := ramadan.CurrentWindow(now, adj)
	if err != nil {
		// Resolution failure means broken arithmetic or configuration; the
		// load cycle cannot proceed.
		return nil, fmt.Errorf("resolving Ramadan window: %w", err)
	}

	if !force {
		if data, ok := l.cache.Read(window.Year); ok {
			log.Debug().Int("year", window.Year).Msg("serving Ramadan data from cache")
			l.scheduleNotifications(ctx, data)
			return data, nil
		}
	}

	pos, err := l.gate.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	data, err := l.build(ctx, window, pos.Coordinates, now)
	if err != nil {
		return nil, err
	}

	if err := l.cache.Write(window.Year, data); err != nil {
		log.Warn().Err(err).Msg("failed to cache Ramadan data")
	}
	l.scheduleNotifications(ctx, data)
	return data, nil
}

// build computes the full data set for a window.
func (l *Loader) build(ctx context.Context, window ramadan.Window, coords geo.Coordinates, now time.Time) (*ramadan.Data, error) {
	calendar := ramadan.BuildDays(window, now)
	days := make([]ramadan.Day, 0, len(calendar))
	currentDay := 0

	for _, cd := range calendar {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		times, err := prayer.ComputeDay(ctx, l.calc, cd.Date, coords)
		if err != nil {
			return nil, err
		}
		l.applyManualOverride(cd.Date, &times)
		if cd.IsToday {
			currentDay = cd.Number
		}
		days = append(days, ramadan.Day{
			Date:    cd.Date,
			Number:  cd.Number,
			IsToday: cd.IsToday,
			Times:   times,
		})
	}

	return &ramadan.Data{
		Window:     window,
		Days:       days,
		CurrentDay: currentDay,
		TotalDays:  len(days),
	}, nil
}

// applyManualOverride replaces a day's Sehri/Iftar with the user's stored
// HH:MM override, when one exists.
func (l *Loader) applyManualOverride(date time.Time, times *prayer.Times) {
	entry, ok := l.settings.ManualTimeFor(date)
	if !ok {
		return
	}
	if t, err := atClock(date, entry.Sehri); err == nil {
		times.Sehri = t
	} else {
		log.Warn().Str("date", entry.Date).Str("sehri", entry.Sehri).Msg("invalid manual Sehri override, ignoring")
	}
	if t, err := atClock(date, entry.Iftar); err == nil {
		times.Iftar = t
	} else {
		log.Warn().Str("date", entry.Date).Str("iftar", entry.Iftar).Msg("invalid manual Iftar override, ignoring")
	}
}

// scheduleNotifications is best effort: a denied permission degrades to a
// warning, never a failed load.
func (l *Loader) scheduleNotifications(ctx context.Context, data *ramadan.Data) {
	if l.scheduler == nil {
		return
	}
	ns := l.settings.NotificationSettings()
	if !ns.Sehri && !ns.Iftar {
		return
	}

	schedules := make([]notify.DaySchedule, 0, len(data.Days))
	for _, day := range data.Days {
		schedules = append(schedules, notify.DaySchedule{
			SehriTime: day.Times.Sehri,
			IftarTime: day.Times.Iftar,
			DayNumber: day.Number,
		})
	}

	err := l.scheduler.ScheduleRamadan(ctx, schedules, notify.Toggles{Sehri: ns.Sehri, Iftar: ns.Iftar})
	if err != nil {
		if errors.Is(err, notify.ErrPermissionDenied) {
			log.Warn().Msg("notifications unavailable, continuing without reminders")
			return
		}
		log.Error().Err(err).Msg("notification scheduling failed")
	}
}

// atClock parses "HH:MM" onto date's calendar day.
func atClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// chanMutex is a context-aware mutex.
type chanMutex chan struct{}

func (m chanMutex) lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) unlock() { <-m }
