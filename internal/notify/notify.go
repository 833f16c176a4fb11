// Package notify arranges device-local notifications for Sehri and Iftar.
//
// The Scheduler implements the app's replace-not-merge policy over an
// abstract Notifier. The production Notifier delivers through notify-send
// and only survives as long as the hosting process; the scheduling policy
// itself is backend-agnostic.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied is returned when the platform refuses to display
// notifications (or no delivery mechanism is present on the host).
var ErrPermissionDenied = errors.New("notification permission denied")

// ChannelName is the user-visible notification channel/category.
const ChannelName = "Ramadan Reminders"

// Notification is one pending device notification.
type Notification struct {
	ID    int
	Title string
	Body  string
	At    time.Time // fire instant; zero or past means "now"
}

// Notifier is the device notification surface.
type Notifier interface {
	// Schedule arms the given notifications. Re-using an ID replaces the
	// prior notification with that ID rather than duplicating it.
	Schedule(ctx context.Context, notifications []Notification) error
	// Cancel discards the pending notifications with the given IDs.
	Cancel(ctx context.Context, ids []int) error
	// Pending lists the IDs of all armed notifications.
	Pending(ctx context.Context) ([]int, error)
	// CheckPermission reports whether notifications can be delivered.
	CheckPermission(ctx context.Context) error
}

// DaySchedule is one day's input to the scheduler.
type DaySchedule struct {
	SehriTime time.Time
	IftarTime time.Time
	DayNumber int
}

// Toggles selects which alert kinds to schedule.
type Toggles struct {
	Sehri bool
	Iftar bool
}

// SehriID returns the deterministic notification ID for a day's Sehri
// alert. Iftar is IftarID. The mapping makes re-scheduling idempotent:
// the same day always maps to the same IDs.
func SehriID(dayNumber int) int { return 2*dayNumber - 1 }

// IftarID returns the deterministic notification ID for a day's Iftar alert.
func IftarID(dayNumber int) int { return 2 * dayNumber }
