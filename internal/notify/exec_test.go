package notify

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func futureNotification(id int) Notification {
	return Notification{
		ID:    id,
		Title: "Sehri Time",
		Body:  "test",
		At:    time.Now().Add(time.Hour),
	}
}

// ---------------------------------------------------------------------------
// ExecNotifier (timer bookkeeping only; delivery needs a desktop)
// ---------------------------------------------------------------------------

func TestExecNotifier_ScheduleAndPending(t *testing.T) {
	n := NewExecNotifier()
	ctx := context.Background()

	err := n.Schedule(ctx, []Notification{
		futureNotification(1), futureNotification(2), futureNotification(3),
	})
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	defer n.Cancel(ctx, []int{1, 2, 3})

	pending, err := n.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending error: %v", err)
	}
	sort.Ints(pending)
	if len(pending) != 3 || pending[0] != 1 || pending[2] != 3 {
		t.Errorf("pending = %v, want [1 2 3]", pending)
	}
}

func TestExecNotifier_ScheduleReplacesSameID(t *testing.T) {
	n := NewExecNotifier()
	ctx := context.Background()

	if err := n.Schedule(ctx, []Notification{futureNotification(7)}); err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	if err := n.Schedule(ctx, []Notification{futureNotification(7)}); err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	defer n.Cancel(ctx, []int{7})

	pending, _ := n.Pending(ctx)
	if len(pending) != 1 {
		t.Errorf("pending = %v, want exactly one entry for reused ID", pending)
	}
}

func TestExecNotifier_Cancel(t *testing.T) {
	n := NewExecNotifier()
	ctx := context.Background()

	if err := n.Schedule(ctx, []Notification{futureNotification(1), futureNotification(2)}); err != nil {
		t.Fatalf("Schedule error: %v", err)
	}

	if err := n.Cancel(ctx, []int{1, 99}); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	pending, _ := n.Pending(ctx)
	if len(pending) != 1 || pending[0] != 2 {
		t.Errorf("pending after cancel = %v, want [2]", pending)
	}
	n.Cancel(ctx, []int{2})
}

func TestExecNotifier_CheckPermission_MissingBinary(t *testing.T) {
	n := NewExecNotifier()
	n.Command = "definitely-not-a-real-binary-xyz"

	err := n.CheckPermission(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}
