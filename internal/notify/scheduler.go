package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// SehriLead and IftarLead are how far before each instant the alert fires.
	SehriLead = 30 * time.Minute
	IftarLead = 15 * time.Minute

	// suppressionWindow skips a whole run when the previous one completed
	// recently. The load cycle runs on every app interaction; without this
	// the platform would be re-asked to schedule the same month repeatedly.
	suppressionWindow = time.Hour

	// Platform scheduling calls are batched to avoid one oversized request.
	maxBatch   = 10
	batchDelay = 500 * time.Millisecond
)

// StampStore records when a scheduling run last completed.
type StampStore interface {
	LastScheduledAt() (time.Time, bool)
	SetLastScheduledAt(t time.Time) error
}

// Scheduler turns day schedules into pending device notifications.
type Scheduler struct {
	notifier Notifier
	stamps   StampStore
	now      func() time.Time
	sleep    func(time.Duration)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSleep overrides the inter-batch delay function. For tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

// NewScheduler creates a Scheduler over the given notifier and stamp store.
func NewScheduler(notifier Notifier, stamps StampStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		notifier: notifier,
		stamps:   stamps,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleRamadan replaces all pending notifications with alerts for the
// given days.
//
// Policy: a run within the suppression window of the last completed run is
// a no-op; otherwise every pending notification is cancelled first (a stale
// alert computed for an old location must not survive), fully past days are
// skipped, and each remaining day contributes a Sehri alert SehriLead
// before Sehri and an Iftar alert IftarLead before Iftar, future instants
// only. Submission happens in bounded batches; a failed batch is logged
// and the rest proceed.
func (s *Scheduler) ScheduleRamadan(ctx context.Context, days []DaySchedule, toggles Toggles) error {
	now := s.now()

	if last, ok := s.stamps.LastScheduledAt(); ok && now.Sub(last) < suppressionWindow {
		log.Debug().Time("last", last).Msg("notifications scheduled recently, skipping")
		return nil
	}

	if err := s.notifier.CheckPermission(ctx); err != nil {
		return fmt.Errorf("cannot schedule notifications: %w", err)
	}

	if err := s.CancelAll(ctx); err != nil {
		return err
	}

	notifications := buildNotifications(days, toggles, now)

	var failed int
	for i := 0; i < len(notifications); i += maxBatch {
		end := min(i+maxBatch, len(notifications))
		if err := s.notifier.Schedule(ctx, notifications[i:end]); err != nil {
			log.Error().Err(err).Int("batch", i/maxBatch).Msg("notification batch failed")
			failed++
			continue
		}
		if end < len(notifications) {
			s.sleep(batchDelay)
		}
	}
	log.Info().Int("scheduled", len(notifications)).Int("failedBatches", failed).
		Msg("notification scheduling run complete")

	// The stamp is written only after a completed run, so a crashed run is
	// retried rather than suppressed.
	if err := s.stamps.SetLastScheduledAt(now); err != nil {
		log.Warn().Err(err).Msg("failed to record scheduling stamp")
	}
	return nil
}

// CancelAll discards every pending notification.
func (s *Scheduler) CancelAll(ctx context.Context) error {
	pending, err := s.notifier.Pending(ctx)
	if err != nil {
		return fmt.Errorf("listing pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	if err := s.notifier.Cancel(ctx, pending); err != nil {
		return fmt.Errorf("cancelling pending notifications: %w", err)
	}
	return nil
}

// Test notification IDs, fixed so repeated test fires replace each other.
const (
	testSehriID = 9001
	testIftarID = 9002
)

// TestFire arms two short-delay notifications so the user can verify
// delivery end to end.
func (s *Scheduler) TestFire(ctx context.Context) error {
	if err := s.notifier.CheckPermission(ctx); err != nil {
		return err
	}
	now := s.now()
	if err := s.notifier.Cancel(ctx, []int{testSehriID, testIftarID}); err != nil {
		log.Debug().Err(err).Msg("no prior test notifications to cancel")
	}
	return s.notifier.Schedule(ctx, []Notification{
		{
			ID:    testSehriID,
			Title: "Sehri Time",
			Body:  "Time to wake up for Sehri! This is a test notification.",
			At:    now.Add(3 * time.Second),
		},
		{
			ID:    testIftarID,
			Title: "Iftar Time",
			Body:  "Time for Iftar! This is a test notification.",
			At:    now.Add(6 * time.Second),
		},
	})
}

// buildNotifications expands day schedules into concrete notifications.
func buildNotifications(days []DaySchedule, toggles Toggles, now time.Time) []Notification {
	var out []Notification
	for _, day := range days {
		if day.SehriTime.Before(now) && day.IftarTime.Before(now) {
			continue
		}

		if toggles.Sehri && day.SehriTime.After(now) {
			at := day.SehriTime.Add(-SehriLead)
			if at.After(now) {
				out = append(out, Notification{
					ID:    SehriID(day.DayNumber),
					Title: "Sehri Time",
					Body: fmt.Sprintf("Day %d: Sehri time is at %s",
						day.DayNumber, day.SehriTime.Format("03:04 PM")),
					At: at,
				})
			}
		}

		if toggles.Iftar && day.IftarTime.After(now) {
			at := day.IftarTime.Add(-IftarLead)
			if at.After(now) {
				out = append(out, Notification{
					ID:    IftarID(day.DayNumber),
					Title: "Iftar Time",
					Body: fmt.Sprintf("Day %d: Iftar time is at %s",
						day.DayNumber, day.IftarTime.Format("03:04 PM")),
					At: at,
				})
			}
		}
	}
	return out
}
