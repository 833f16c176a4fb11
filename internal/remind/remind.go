// Package remind runs the in-process voice/text reminder schedule around
// Sehri and Iftar.
//
// A Service owns a set of time.AfterFunc timers, one per (kind, instant)
// key, and a single-consumer speech queue. Timers live in process memory
// only: the service covers the running remind daemon, not instants past the
// process's death — durable alerts are the notify package's job. The
// service is an injectable value constructed by its caller; there is no
// package-level instance.
package remind

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/smokyabdulrahman/ramadan-times/internal/notify"
	"github.com/smokyabdulrahman/ramadan-times/internal/store"
)

// ErrSpeechUnavailable is returned when the speech backend cannot speak.
// Reminders still reach the user as text notifications.
var ErrSpeechUnavailable = errors.New("speech unavailable")

// Kind names a reminder slot around Sehri or Iftar.
type Kind string

// Reminder kinds, in firing order within each meal.
const (
	SehriPrep    Kind = "sehri-prep"    // 30 min before Sehri
	SehriWarning Kind = "sehri-warning" // 10 min before Sehri
	SehriFinal   Kind = "sehri-final"   // at Sehri
	IftarPrep    Kind = "iftar-prep"    // 30 min before Iftar
	IftarWarning Kind = "iftar-warning" // 5 min before Iftar
	IftarTime    Kind = "iftar-time"    // at Iftar
)

// Reminder is one scheduled announcement.
type Reminder struct {
	Time    time.Time
	Message string
	Kind    Kind
}

const (
	// scheduleDebounce absorbs rapid repeated schedule calls when the load
	// cycle re-runs in quick succession.
	scheduleDebounce = 500 * time.Millisecond

	// The sweep ticks every minute but only does work every five, dropping
	// bookkeeping for instants that have passed.
	sweepTick     = time.Minute
	sweepInterval = 5 * time.Minute

	speechQueueDepth = 16

	// Immediate reminder notifications use their own ID range so they never
	// collide with the per-day scheduled IDs.
	reminderIDBase = 50000
	reminderIDMax  = 100000
)

// speechJob is one queued announcement.
type speechJob struct {
	id      string
	message string
}

// Service schedules and announces reminders.
type Service struct {
	notifier notify.Notifier
	speaker  Speaker
	voice    func() store.VoiceSettings
	now      func() time.Time

	mu           sync.Mutex
	timers       map[string]*time.Timer
	lastSchedule time.Time
	lastSweep    time.Time
	stopped      bool
	speechOK     bool
	notifID      int

	queue chan speechJob
	quit  chan struct{}
	wg    sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a running Service. voice supplies the current voice settings
// at announcement time, so settings changes apply without rescheduling.
// Call Stop when done; a Service holds goroutines and timers.
func New(notifier notify.Notifier, speaker Speaker, voice func() store.VoiceSettings, opts ...Option) *Service {
	s := &Service{
		notifier: notifier,
		speaker:  speaker,
		voice:    voice,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
		speechOK: speaker != nil && speaker.Available(),
		notifID:  reminderIDBase,
		queue:    make(chan speechJob, speechQueueDepth),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(2)
	go s.consumeSpeech()
	go s.sweepLoop()
	return s
}

// ScheduleSehri arms the prep/warning/final reminders around a Sehri
// instant. Offsets whose target has already passed are skipped; if the
// Sehri instant itself has passed, nothing is armed.
func (s *Service) ScheduleSehri(sehri time.Time, dayNumber int) {
	if !s.beginSchedule() {
		return
	}
	s.scheduleSehri(sehri, dayNumber)
}

// ScheduleIftar arms the prep/warning/at-time reminders around an Iftar
// instant, with the same past-instant rules as ScheduleSehri.
func (s *Service) ScheduleIftar(iftar time.Time, dayNumber int) {
	if !s.beginSchedule() {
		return
	}
	s.scheduleIftar(iftar, dayNumber)
}

// ScheduleDay arms both meal sequences for one day.
func (s *Service) ScheduleDay(sehri, iftar time.Time, dayNumber int) {
	if !s.beginSchedule() {
		return
	}
	s.scheduleSehri(sehri, dayNumber)
	s.scheduleIftar(iftar, dayNumber)
}

// ScheduleWindow arms one day's reminders plus the following day's Sehri in
// a single pass. The next Sehri can land under 30 minutes after midnight, so
// waiting for the next reload would miss its prep offsets. nextSehri may be
// zero when the day is the last of the month.
func (s *Service) ScheduleWindow(sehri, iftar time.Time, dayNumber int, nextSehri time.Time, nextDayNumber int) {
	if !s.beginSchedule() {
		return
	}
	s.scheduleSehri(sehri, dayNumber)
	s.scheduleIftar(iftar, dayNumber)
	if !nextSehri.IsZero() {
		s.scheduleSehri(nextSehri, nextDayNumber)
	}
}

// beginSchedule applies the debounce shared by the public scheduling entry
// points and reports whether scheduling may proceed.
func (s *Service) beginSchedule() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	now := s.now()
	if now.Sub(s.lastSchedule) < scheduleDebounce {
		log.Debug().Msg("reminder scheduling debounced")
		return false
	}
	s.lastSchedule = now
	return true
}

func (s *Service) scheduleSehri(sehri time.Time, dayNumber int) {
	if sehri.Before(s.now()) {
		return
	}
	s.schedule(Reminder{
		Time:    sehri.Add(-30 * time.Minute),
		Message: fmt.Sprintf("Day %d: 30 minutes until Sehri time.", dayNumber),
		Kind:    SehriPrep,
	})
	s.schedule(Reminder{
		Time:    sehri.Add(-10 * time.Minute),
		Message: fmt.Sprintf("Day %d: 10 minutes until Sehri time.", dayNumber),
		Kind:    SehriWarning,
	})
	s.schedule(Reminder{
		Time:    sehri,
		Message: fmt.Sprintf("Day %d: It's Sehri time now.", dayNumber),
		Kind:    SehriFinal,
	})
}

func (s *Service) scheduleIftar(iftar time.Time, dayNumber int) {
	if iftar.Before(s.now()) {
		return
	}
	s.schedule(Reminder{
		Time:    iftar.Add(-30 * time.Minute),
		Message: fmt.Sprintf("Day %d: 30 minutes until Iftar time.", dayNumber),
		Kind:    IftarPrep,
	})
	s.schedule(Reminder{
		Time:    iftar.Add(-5 * time.Minute),
		Message: fmt.Sprintf("Day %d: 5 minutes until Iftar time.", dayNumber),
		Kind:    IftarWarning,
	})
	s.schedule(Reminder{
		Time:    iftar,
		Message: fmt.Sprintf("Day %d: It's Iftar time now.", dayNumber),
		Kind:    IftarTime,
	})
}

// schedule arms one reminder. At most one live timer exists per
// (kind, instant) key; rescheduling a live key cancels the prior timer.
func (s *Service) schedule(r Reminder) {
	now := s.now()
	if r.Time.Before(now) {
		return
	}
	key := timerKey(r.Kind, r.Time)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prior, ok := s.timers[key]; ok {
		prior.Stop()
		delete(s.timers, key)
	}
	s.timers[key] = time.AfterFunc(r.Time.Sub(now), func() {
		s.fire(key, r.Message)
	})
}

func (s *Service) fire(key, message string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	select {
	case s.queue <- speechJob{id: uuid.NewString(), message: message}:
	default:
		// A full queue means announcements are already backed up; dropping
		// the oldest pending message would reorder, so drop this one.
		log.Warn().Str("message", message).Msg("speech queue full, reminder dropped")
	}
}

// consumeSpeech serializes announcements: never two simultaneous speech
// calls, and every announcement is also posted as a text notification so a
// broken speech backend cannot silently lose reminders.
func (s *Service) consumeSpeech() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case job := <-s.queue:
			s.announce(job)
		}
	}
}

func (s *Service) announce(job speechJob) {
	ctx := context.Background()

	err := s.notifier.Schedule(ctx, []notify.Notification{{
		ID:    s.nextNotifID(),
		Title: "Ramadan Reminder",
		Body:  job.message,
	}})
	if err != nil {
		log.Error().Err(err).Str("job", job.id).Msg("reminder notification failed")
	}

	settings := s.voice()
	if !settings.Enabled || !s.speechAvailable() {
		return
	}
	if err := s.speaker.Speak(ctx, job.message, settings); err != nil {
		log.Warn().Err(err).Str("job", job.id).
			Msg("speech failed, reminder delivered as notification only")
		if errors.Is(err, ErrSpeechUnavailable) {
			s.setSpeechAvailable(false)
		}
	}
}

// sweepLoop periodically discards bookkeeping for instants that have
// passed, bounding the timer map over a month-long run.
func (s *Service) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(sweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now

	expired := 0
	for key, timer := range s.timers {
		at, ok := keyInstant(key)
		if !ok || at.Before(now) {
			timer.Stop()
			delete(s.timers, key)
			expired++
		}
	}
	if expired > 0 {
		log.Debug().Int("expired", expired).Msg("swept expired reminders")
	}
}

// ClearAll cancels every armed reminder and drops queued announcements.
func (s *Service) ClearAll() {
	s.mu.Lock()
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	s.drainQueue()
	if s.speaker != nil {
		s.speaker.Stop()
	}
}

// Stop tears the service down: all timers cancelled, the speech queue
// cleared, in-flight speech stopped, goroutines joined. Safe to call more
// than once.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	close(s.quit)
	s.wg.Wait()
	s.drainQueue()
	if s.speaker != nil {
		s.speaker.Stop()
	}
}

// ActiveReminders reports the number of armed timers.
func (s *Service) ActiveReminders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// SpeechAvailable reports whether spoken reminders currently work.
func (s *Service) SpeechAvailable() bool {
	return s.speechAvailable()
}

// Announce speaks (and notifies) a message immediately, bypassing timers.
// Used by the voice test command.
func (s *Service) Announce(message string) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	s.announce(speechJob{id: uuid.NewString(), message: message})
}

func (s *Service) speechAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speechOK
}

func (s *Service) setSpeechAvailable(ok bool) {
	s.mu.Lock()
	s.speechOK = ok
	s.mu.Unlock()
}

func (s *Service) nextNotifID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.notifID
	s.notifID++
	if s.notifID >= reminderIDMax {
		s.notifID = reminderIDBase
	}
	return id
}

func (s *Service) drainQueue() {
	for {
		select {
		case <-s.queue:
		default:
			return
		}
	}
}

func timerKey(kind Kind, at time.Time) string {
	return fmt.Sprintf("%s-%d", kind, at.Unix())
}

// keyInstant recovers the target instant from a timer key.
func keyInstant(key string) (time.Time, bool) {
	idx := strings.LastIndex(key, "-")
	if idx < 0 {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}
