package geo

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider returns a canned fix or an error.
type fakeProvider struct {
	pos   Position
	err   error
	calls int
}

func (f *fakeProvider) CurrentPosition(ctx context.Context) (Position, error) {
	f.calls++
	if f.err != nil {
		return Position{}, f.err
	}
	return f.pos, nil
}

// memKV is an in-memory KV for tests.
type memKV struct {
	values map[string]string
	setErr error
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (m *memKV) GetValue(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return v, nil
}

func (m *memKV) SetValue(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

var dhaka = Position{
	Coordinates: Coordinates{Latitude: 23.8103, Longitude: 90.4125},
	City:        "Dhaka",
	Country:     "Bangladesh",
	Timezone:    "Asia/Dhaka",
}

// ---------------------------------------------------------------------------
// Coordinates.Validate
// ---------------------------------------------------------------------------

func TestCoordinatesValidate(t *testing.T) {
	tests := []struct {
		name    string
		coords  Coordinates
		wantErr bool
	}{
		{"valid", Coordinates{23.8, 90.4}, false},
		{"zero zero is valid", Coordinates{0, 0}, false},
		{"boundary north pole", Coordinates{90, 0}, false},
		{"boundary date line", Coordinates{0, -180}, false},
		{"latitude too high", Coordinates{90.1, 0}, true},
		{"latitude too low", Coordinates{-90.1, 0}, true},
		{"longitude too high", Coordinates{0, 180.1}, true},
		{"longitude too low", Coordinates{0, -180.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coords.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%+v) err = %v, wantErr %v", tt.coords, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Gate.Current
// ---------------------------------------------------------------------------

func TestGateCurrent(t *testing.T) {
	provider := &fakeProvider{pos: dhaka}
	kv := newMemKV()
	g := NewGate(provider, kv)

	got, err := g.Current(context.Background())
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if got != dhaka {
		t.Errorf("Current = %+v, want %+v", got, dhaka)
	}

	// The fix is persisted and readable without the provider.
	cached, ok := g.Cached()
	if !ok {
		t.Fatal("fix was not persisted")
	}
	if cached != dhaka {
		t.Errorf("Cached = %+v, want %+v", cached, dhaka)
	}
}

func TestGateCurrent_ProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("no network")}
	g := NewGate(provider, newMemKV())

	_, err := g.Current(context.Background())
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Errorf("expected ErrLocationUnavailable, got %v", err)
	}
}

func TestGateCurrent_InvalidFixRejected(t *testing.T) {
	provider := &fakeProvider{pos: Position{Coordinates: Coordinates{Latitude: 200}}}
	kv := newMemKV()
	g := NewGate(provider, kv)

	if _, err := g.Current(context.Background()); !errors.Is(err, ErrLocationUnavailable) {
		t.Errorf("expected ErrLocationUnavailable for invalid fix, got %v", err)
	}
	if _, ok := g.Cached(); ok {
		t.Error("invalid fix must not be persisted")
	}
}

func TestGateCurrent_PersistFailureIsNotFatal(t *testing.T) {
	provider := &fakeProvider{pos: dhaka}
	kv := newMemKV()
	kv.setErr = errors.New("disk full")
	g := NewGate(provider, kv)

	got, err := g.Current(context.Background())
	if err != nil {
		t.Fatalf("a fix we cannot persist is still a fix: %v", err)
	}
	if got != dhaka {
		t.Errorf("Current = %+v, want %+v", got, dhaka)
	}
}

// ---------------------------------------------------------------------------
// Gate.Cached
// ---------------------------------------------------------------------------

func TestGateCached_CorruptIgnored(t *testing.T) {
	kv := newMemKV()
	kv.values[positionKey] = "{not json"
	g := NewGate(&fakeProvider{}, kv)

	if _, ok := g.Cached(); ok {
		t.Error("corrupt persisted position must read as absent")
	}
}

// ---------------------------------------------------------------------------
// Gate.Resolve
// ---------------------------------------------------------------------------

func TestGateResolve(t *testing.T) {
	t.Run("live fix wins", func(t *testing.T) {
		g := NewGate(&fakeProvider{pos: dhaka}, newMemKV())
		got, err := g.Resolve(context.Background())
		if err != nil || got != dhaka {
			t.Errorf("Resolve = %+v, %v", got, err)
		}
	})

	t.Run("falls back to cached", func(t *testing.T) {
		kv := newMemKV()
		g := NewGate(&fakeProvider{pos: dhaka}, kv)
		if err := g.Set(dhaka); err != nil {
			t.Fatalf("Set error: %v", err)
		}

		broken := NewGate(&fakeProvider{err: errors.New("offline")}, kv)
		got, err := broken.Resolve(context.Background())
		if err != nil {
			t.Fatalf("Resolve with cached position error: %v", err)
		}
		if got != dhaka {
			t.Errorf("Resolve = %+v, want cached %+v", got, dhaka)
		}
	})

	t.Run("no fix and no cache", func(t *testing.T) {
		g := NewGate(&fakeProvider{err: errors.New("offline")}, newMemKV())
		if _, err := g.Resolve(context.Background()); !errors.Is(err, ErrLocationUnavailable) {
			t.Errorf("expected ErrLocationUnavailable, got %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Gate.Set / Subscribe
// ---------------------------------------------------------------------------

func TestGateSet_Invalid(t *testing.T) {
	g := NewGate(&fakeProvider{}, newMemKV())
	pos := Position{Coordinates: Coordinates{Latitude: -100}}
	if err := g.Set(pos); err == nil {
		t.Error("expected error storing invalid coordinates")
	}
}

func TestGateSubscribe(t *testing.T) {
	g := NewGate(&fakeProvider{pos: dhaka}, newMemKV())

	var got []Position
	token := g.Subscribe(func(p Position) { got = append(got, p) })

	if err := g.Set(dhaka); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if len(got) != 1 || got[0] != dhaka {
		t.Fatalf("subscriber saw %v, want one %+v", got, dhaka)
	}

	if _, err := g.Current(context.Background()); err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("subscriber saw %d updates, want 2", len(got))
	}

	g.Unsubscribe(token)
	if err := g.Set(dhaka); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("unsubscribed callback still invoked (%d updates)", len(got))
	}
}
