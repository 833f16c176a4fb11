package notify

import (
	"context"
	"sort"
	"sync"
)

// MemoryNotifier records notifications without delivering anything. It
// backs tests and the --dry-run notification paths.
type MemoryNotifier struct {
	// PermissionErr, when set, is returned by CheckPermission.
	PermissionErr error

	mu       sync.Mutex
	pending  map[int]Notification
	schedged int // number of Schedule calls
}

// NewMemoryNotifier creates an empty in-memory notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{pending: make(map[int]Notification)}
}

// CheckPermission implements Notifier.
func (m *MemoryNotifier) CheckPermission(ctx context.Context) error {
	return m.PermissionErr
}

// Schedule implements Notifier.
func (m *MemoryNotifier) Schedule(ctx context.Context, notifications []Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedged++
	for _, n := range notifications {
		m.pending[n.ID] = n
	}
	return nil
}

// Cancel implements Notifier.
func (m *MemoryNotifier) Cancel(ctx context.Context, ids []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.pending, id)
	}
	return nil
}

// Pending implements Notifier.
func (m *MemoryNotifier) Pending(ctx context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Get returns the pending notification with the given ID.
func (m *MemoryNotifier) Get(id int) (Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.pending[id]
	return n, ok
}

// ScheduleCalls reports how many times Schedule was invoked.
func (m *MemoryNotifier) ScheduleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedged
}
