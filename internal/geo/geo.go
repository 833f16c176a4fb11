// Package geo resolves and remembers the user's coordinates.
//
// A Gate wraps a position Provider with the persistence and fallback policy
// the rest of the app relies on: a live fix is persisted and announced to
// subscribers; when the live fix fails, the last persisted position is used;
// when neither exists the caller gets ErrLocationUnavailable. There is
// deliberately no default location — computing prayer times for a guessed
// city would be silently wrong.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrLocationUnavailable is returned when no live fix can be obtained:
// the provider timed out, reported an error, or returned coordinates
// outside the valid range.
var ErrLocationUnavailable = errors.New("location unavailable")

// positionKey is the persistence key for the last known position.
const positionKey = "ramadan-coordinates"

// Coordinates is a geographic point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// Position is a resolved location: coordinates plus whatever place metadata
// the provider could attach.
type Position struct {
	Coordinates
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Provider obtains a live position fix.
type Provider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// KV is the slice of the preferences store the gate needs.
type KV interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// Gate owns the persisted position and notifies subscribers when it changes.
type Gate struct {
	provider Provider
	kv       KV

	mu          sync.Mutex
	subscribers map[string]func(Position)
}

// NewGate creates a Gate over the given provider and store.
func NewGate(provider Provider, kv KV) *Gate {
	return &Gate{
		provider:    provider,
		kv:          kv,
		subscribers: make(map[string]func(Position)),
	}
}

// Current obtains a live fix, persists it, and announces the change.
// Failures are wrapped in ErrLocationUnavailable.
func (g *Gate) Current(ctx context.Context) (Position, error) {
	pos, err := g.provider.CurrentPosition(ctx)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if err := pos.Validate(); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	if err := g.save(pos); err != nil {
		// A fix we cannot persist is still a usable fix.
		log.Warn().Err(err).Msg("failed to persist position")
	}
	g.notify(pos)
	return pos, nil
}

// Cached returns the last persisted position without any provider call.
// The second return value reports whether one exists.
func (g *Gate) Cached() (Position, bool) {
	raw, err := g.kv.GetValue(positionKey)
	if err != nil {
		return Position{}, false
	}
	var pos Position
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		log.Warn().Err(err).Msg("corrupt persisted position, ignoring")
		return Position{}, false
	}
	if pos.Validate() != nil {
		return Position{}, false
	}
	return pos, true
}

// Resolve is the two-tier load path: a live fix, falling back to the cached
// position, and ErrLocationUnavailable when both are missing.
func (g *Gate) Resolve(ctx context.Context) (Position, error) {
	pos, err := g.Current(ctx)
	if err == nil {
		return pos, nil
	}
	log.Debug().Err(err).Msg("live fix failed, trying cached position")
	if cached, ok := g.Cached(); ok {
		return cached, nil
	}
	return Position{}, err
}

// Set stores a manually chosen position, bypassing the provider.
func (g *Gate) Set(pos Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	if err := g.save(pos); err != nil {
		return err
	}
	g.notify(pos)
	return nil
}

// Subscribe registers a callback invoked whenever the position changes.
// The returned token is passed to Unsubscribe.
func (g *Gate) Subscribe(fn func(Position)) string {
	token := uuid.NewString()
	g.mu.Lock()
	g.subscribers[token] = fn
	g.mu.Unlock()
	return token
}

// Unsubscribe removes a previously registered callback.
func (g *Gate) Unsubscribe(token string) {
	g.mu.Lock()
	delete(g.subscribers, token)
	g.mu.Unlock()
}

func (g *Gate) save(pos Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return g.kv.SetValue(positionKey, string(data))
}

func (g *Gate) notify(pos Position) {
	g.mu.Lock()
	fns := make([]func(Position), 0, len(g.subscribers))
	for _, fn := range g.subscribers {
		fns = append(fns, fn)
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(pos)
	}
}
