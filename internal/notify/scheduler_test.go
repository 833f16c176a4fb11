package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

// memStamps is an in-memory StampStore.
type memStamps struct {
	at  time.Time
	set bool
}

func (m *memStamps) LastScheduledAt() (time.Time, bool) { return m.at, m.set }
func (m *memStamps) SetLastScheduledAt(t time.Time) error {
	m.at, m.set = t, true
	return nil
}

var bothOn = Toggles{Sehri: true, Iftar: true}

// monthOf builds days of DaySchedule records starting the day after now,
// so every instant is in the future.
func monthOf(now time.Time, days int) []DaySchedule {
	out := make([]DaySchedule, 0, days)
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	for i := 0; i < days; i++ {
		day := base.AddDate(0, 0, i)
		out = append(out, DaySchedule{
			SehriTime: day.Add(4*time.Hour + 50*time.Minute),
			IftarTime: day.Add(18 * time.Hour),
			DayNumber: i + 1,
		})
	}
	return out
}

func newTestScheduler(notifier Notifier, stamps StampStore, now time.Time) *Scheduler {
	return NewScheduler(notifier, stamps,
		WithClock(func() time.Time { return now }),
		WithSleep(func(time.Duration) {}))
}

// ---------------------------------------------------------------------------
// Notification IDs
// ---------------------------------------------------------------------------

func TestNotificationIDs(t *testing.T) {
	// Odd IDs for Sehri, even for Iftar, disjoint across a month.
	seen := make(map[int]int)
	for day := 1; day <= 30; day++ {
		for _, id := range []int{SehriID(day), IftarID(day)} {
			if prior, ok := seen[id]; ok {
				t.Fatalf("ID %d reused by day %d (first day %d)", id, day, prior)
			}
			seen[id] = day
		}
		if SehriID(day)%2 != 1 {
			t.Errorf("SehriID(%d) = %d, want odd", day, SehriID(day))
		}
		if IftarID(day)%2 != 0 {
			t.Errorf("IftarID(%d) = %d, want even", day, IftarID(day))
		}
	}
	if SehriID(1) != 1 || IftarID(1) != 2 || SehriID(30) != 59 || IftarID(30) != 60 {
		t.Errorf("ID anchors wrong: %d %d %d %d", SehriID(1), IftarID(1), SehriID(30), IftarID(30))
	}
}

// ---------------------------------------------------------------------------
// ScheduleRamadan
// ---------------------------------------------------------------------------

func TestScheduleRamadan(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier := NewMemoryNotifier()
	s := newTestScheduler(notifier, &memStamps{}, now)

	days := monthOf(now, 30)
	if err := s.ScheduleRamadan(context.Background(), days, bothOn); err != nil {
		t.Fatalf("ScheduleRamadan error: %v", err)
	}

	pending, _ := notifier.Pending(context.Background())
	if len(pending) != 60 {
		t.Fatalf("pending = %d notifications, want 60", len(pending))
	}

	// Spot-check one day's pair: lead offsets and body format.
	sehri, ok := notifier.Get(SehriID(1))
	if !ok {
		t.Fatal("day 1 sehri notification missing")
	}
	if got := days[0].SehriTime.Sub(sehri.At); got != SehriLead {
		t.Errorf("sehri lead = %v, want %v", got, SehriLead)
	}
	if want := "Day 1: Sehri time is at 04:50 AM"; sehri.Body != want {
		t.Errorf("sehri body = %q, want %q", sehri.Body, want)
	}

	iftar, ok := notifier.Get(IftarID(1))
	if !ok {
		t.Fatal("day 1 iftar notification missing")
	}
	if got := days[0].IftarTime.Sub(iftar.At); got != IftarLead {
		t.Errorf("iftar lead = %v, want %v", got, IftarLead)
	}
	if want := "Day 1: Iftar time is at 06:00 PM"; iftar.Body != want {
		t.Errorf("iftar body = %q, want %q", iftar.Body, want)
	}
}

func TestScheduleRamadan_Toggles(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	days := monthOf(now, 5)

	tests := []struct {
		name    string
		toggles Toggles
		want    int
	}{
		{"both on", Toggles{Sehri: true, Iftar: true}, 10},
		{"sehri only", Toggles{Sehri: true}, 5},
		{"iftar only", Toggles{Iftar: true}, 5},
		{"both off", Toggles{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := NewMemoryNotifier()
			s := newTestScheduler(notifier, &memStamps{}, now)

			if err := s.ScheduleRamadan(context.Background(), days, tt.toggles); err != nil {
				t.Fatalf("ScheduleRamadan error: %v", err)
			}
			pending, _ := notifier.Pending(context.Background())
			if len(pending) != tt.want {
				t.Errorf("pending = %d, want %d", len(pending), tt.want)
			}
		})
	}
}

func TestScheduleRamadan_SkipsPast(t *testing.T) {
	// Day 10 of a 30-day month: days 1-9 fully past, day 10 sehri past.
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	month := monthOf(now.AddDate(0, 0, -10), 30)

	notifier := NewMemoryNotifier()
	s := newTestScheduler(notifier, &memStamps{}, now)

	if err := s.ScheduleRamadan(context.Background(), month, bothOn); err != nil {
		t.Fatalf("ScheduleRamadan error: %v", err)
	}

	for day := 1; day <= 9; day++ {
		if _, ok := notifier.Get(SehriID(day)); ok {
			t.Errorf("past day %d sehri scheduled", day)
		}
		if _, ok := notifier.Get(IftarID(day)); ok {
			t.Errorf("past day %d iftar scheduled", day)
		}
	}
	// Day 10: sehri (04:50) already past at noon, iftar (18:00) ahead.
	if _, ok := notifier.Get(SehriID(10)); ok {
		t.Error("past sehri on the current day scheduled")
	}
	if _, ok := notifier.Get(IftarID(10)); !ok {
		t.Error("future iftar on the current day not scheduled")
	}
}

func TestScheduleRamadan_PreOffsetMustBeFuture(t *testing.T) {
	// Sehri 20 minutes away: the alert instant (30 min before) is already
	// past, so no sehri notification is armed.
	now := time.Date(2025, 3, 1, 4, 30, 0, 0, time.UTC)
	days := []DaySchedule{{
		SehriTime: now.Add(20 * time.Minute),
		IftarTime: now.Add(13 * time.Hour),
		DayNumber: 1,
	}}

	notifier := NewMemoryNotifier()
	s := newTestScheduler(notifier, &memStamps{}, now)

	if err := s.ScheduleRamadan(context.Background(), days, bothOn); err != nil {
		t.Fatalf("ScheduleRamadan error: %v", err)
	}
	if _, ok := notifier.Get(SehriID(1)); ok {
		t.Error("sehri alert armed although its instant is past")
	}
	if _, ok := notifier.Get(IftarID(1)); !ok {
		t.Error("iftar alert missing")
	}
}

func TestScheduleRamadan_ReplacesPrior(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier := NewMemoryNotifier()
	stamps := &memStamps{}
	s := newTestScheduler(notifier, stamps, now)

	if err := s.ScheduleRamadan(context.Background(), monthOf(now, 30), bothOn); err != nil {
		t.Fatalf("first run error: %v", err)
	}

	// Second run two hours later (outside suppression) with fewer days.
	later := now.Add(2 * time.Hour)
	s2 := newTestScheduler(notifier, stamps, later)
	if err := s2.ScheduleRamadan(context.Background(), monthOf(later, 3), bothOn); err != nil {
		t.Fatalf("second run error: %v", err)
	}

	pending, _ := notifier.Pending(context.Background())
	if len(pending) != 6 {
		t.Errorf("pending after replace = %d, want 6 (stale alerts must not survive)", len(pending))
	}
}

func TestScheduleRamadan_SuppressionWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier := NewMemoryNotifier()
	stamps := &memStamps{at: now.Add(-30 * time.Minute), set: true}
	s := newTestScheduler(notifier, stamps, now)

	if err := s.ScheduleRamadan(context.Background(), monthOf(now, 30), bothOn); err != nil {
		t.Fatalf("ScheduleRamadan error: %v", err)
	}

	pending, _ := notifier.Pending(context.Background())
	if len(pending) != 0 {
		t.Errorf("run within suppression window scheduled %d notifications", len(pending))
	}

	// An hour after the stamp the run goes through.
	s2 := newTestScheduler(notifier, stamps, stamps.at.Add(suppressionWindow+time.Minute))
	if err := s2.ScheduleRamadan(context.Background(), monthOf(now, 30), bothOn); err != nil {
		t.Fatalf("second run error: %v", err)
	}
	pending, _ = notifier.Pending(context.Background())
	if len(pending) == 0 {
		t.Error("run outside suppression window scheduled nothing")
	}
}

func TestScheduleRamadan_StampWrittenAfterRun(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stamps := &memStamps{}
	s := newTestScheduler(NewMemoryNotifier(), stamps, now)

	if err := s.ScheduleRamadan(context.Background(), monthOf(now, 2), bothOn); err != nil {
		t.Fatalf("ScheduleRamadan error: %v", err)
	}
	if !stamps.set || !stamps.at.Equal(now) {
		t.Errorf("stamp = %v set=%v, want %v", stamps.at, stamps.set, now)
	}
}

func TestScheduleRamadan_PermissionDenied(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier := NewMemoryNotifier()
	notifier.PermissionErr = ErrPermissionDenied
	stamps := &memStamps{}
	s := newTestScheduler(notifier, stamps, now)

	err := s.ScheduleRamadan(context.Background(), monthOf(now, 30), bothOn)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if stamps.set {
		t.Error("stamp written for a failed run")
	}
}

func TestScheduleRamadan_Batching(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier := NewMemoryNotifier()
	var slept int
	s := NewScheduler(notifier, &memStamps{},
		WithClock(func() time.Time { return now }),
		WithSleep(func(d time.Duration) {
			if d != batchDelay {
				t.Errorf("sleep %v, want %v", d, batchDelay)
			}
			slept++
		}))

	// 30 days x 2 alerts = 60 notifications = 6 batches of 10.
	if err := s.ScheduleRamadan(context.Background(), monthOf(now, 30), bothOn); err != nil {
		t.Fatalf("ScheduleRamadan error: %v", err)
	}

	if got := notifier.ScheduleCalls(); got != 6 {
		t.Errorf("Schedule called %d times, want 6 batches", got)
	}
	if slept != 5 {
		t.Errorf("slept %d times between batches, want 5", slept)
	}
}

// ---------------------------------------------------------------------------
// TestFire
// ---------------------------------------------------------------------------

func TestTestFire(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier := NewMemoryNotifier()
	s := newTestScheduler(notifier, &memStamps{}, now)

	if err := s.TestFire(context.Background()); err != nil {
		t.Fatalf("TestFire error: %v", err)
	}

	sehri, ok := notifier.Get(testSehriID)
	if !ok {
		t.Fatal("test sehri notification missing")
	}
	if got := sehri.At.Sub(now); got != 3*time.Second {
		t.Errorf("test sehri delay = %v, want 3s", got)
	}

	iftar, ok := notifier.Get(testIftarID)
	if !ok {
		t.Fatal("test iftar notification missing")
	}
	if got := iftar.At.Sub(now); got != 6*time.Second {
		t.Errorf("test iftar delay = %v, want 6s", got)
	}

	// Repeated fires replace, not accumulate.
	if err := s.TestFire(context.Background()); err != nil {
		t.Fatalf("second TestFire error: %v", err)
	}
	pending, _ := notifier.Pending(context.Background())
	if len(pending) != 2 {
		t.Errorf("pending after two test fires = %d, want 2", len(pending))
	}
}
