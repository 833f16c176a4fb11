package notify

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ExecNotifier delivers notifications through the host's notify-send
// command and keeps its own pending set with in-process timers.
//
// Pending notifications only survive as long as the process: this backend
// is meant for the remind daemon, where the process lifetime covers the
// scheduled instants. There is no durable OS alarm store on a plain CLI
// host to hand them to.
type ExecNotifier struct {
	// Command is the binary used for delivery. Defaults to notify-send.
	Command string

	mu      sync.Mutex
	pending map[int]*time.Timer
}

// NewExecNotifier creates a notifier backed by notify-send.
func NewExecNotifier() *ExecNotifier {
	return &ExecNotifier{
		Command: "notify-send",
		pending: make(map[int]*time.Timer),
	}
}

// CheckPermission implements Notifier. Missing delivery binary is the CLI
// analog of a denied notification permission.
func (n *ExecNotifier) CheckPermission(ctx context.Context) error {
	if _, err := exec.LookPath(n.Command); err != nil {
		return fmt.Errorf("%w: %s not found", ErrPermissionDenied, n.Command)
	}
	return nil
}

// Schedule implements Notifier. Re-using an ID replaces the prior timer.
func (n *ExecNotifier) Schedule(ctx context.Context, notifications []Notification) error {
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, notif := range notifications {
		if prior, ok := n.pending[notif.ID]; ok {
			prior.Stop()
		}
		delay := notif.At.Sub(now)
		if delay < 0 {
			delay = 0
		}
		notif := notif
		n.pending[notif.ID] = time.AfterFunc(delay, func() {
			n.deliver(notif)
			n.mu.Lock()
			delete(n.pending, notif.ID)
			n.mu.Unlock()
		})
	}
	return nil
}

// Cancel implements Notifier.
func (n *ExecNotifier) Cancel(ctx context.Context, ids []int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range ids {
		if t, ok := n.pending[id]; ok {
			t.Stop()
			delete(n.pending, id)
		}
	}
	return nil
}

// Pending implements Notifier.
func (n *ExecNotifier) Pending(ctx context.Context) ([]int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]int, 0, len(n.pending))
	for id := range n.pending {
		ids = append(ids, id)
	}
	return ids, nil
}

func (n *ExecNotifier) deliver(notif Notification) {
	cmd := exec.Command(n.Command, "--app-name", ChannelName, notif.Title, notif.Body)
	if err := cmd.Run(); err != nil {
		log.Error().Err(err).Int("id", notif.ID).Str("title", notif.Title).
			Msg("notification delivery failed")
	}
}
