// Package cache persists one computed Ramadan data set per Gregorian year.
//
// Entries carry a schema version and an epoch-millisecond write stamp, and
// are valid for one hour. Anything wrong with a stored entry — missing,
// expired, wrong year, wrong schema, corrupt JSON — reads as a miss, never
// as an error: the load cycle simply recomputes. Date fields are serialized
// as RFC 3339 strings and re-hydrated into time.Time values on read.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smokyabdulrahman/ramadan-times/internal/ramadan"
)

// Expiry is the freshness window of a cached entry.
const Expiry = time.Hour

// SchemaVersion identifies the entry layout. Bump on incompatible changes;
// old entries then read as misses and are rewritten.
const SchemaVersion = 1

// KV is the slice of the preferences store the cache needs.
type KV interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// Cache stores RamadanData sets keyed by year.
type Cache struct {
	kv  KV
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over the given store.
func New(kv KV, opts ...Option) *Cache {
	c := &Cache{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entry is the persisted envelope.
type entry struct {
	SchemaVersion int          `json:"schemaVersion"`
	Data          ramadan.Data `json:"data"`
	Timestamp     int64        `json:"timestamp"` // epoch ms at write time
	Year          int          `json:"year"`
}

func cacheKey(year int) string {
	return fmt.Sprintf("ramadan_data_cache_%d", year)
}

// Read returns the cached data set for year, or false on any miss
// condition. The IsToday flags and CurrentDay are recomputed against the
// current clock, since they are only meaningful at read time.
func (c *Cache) Read(year int) (*ramadan.Data, bool) {
	raw, err := c.kv.GetValue(cacheKey(year))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		log.Warn().Err(err).Int("year", year).Msg("corrupt cache entry, treating as miss")
		return nil, false
	}
	if e.SchemaVersion != SchemaVersion || e.Year != year {
		return nil, false
	}

	now := c.now()
	age := now.Sub(time.UnixMilli(e.Timestamp))
	if age < 0 || age >= Expiry {
		return nil, false
	}

	refresh(&e.Data, now)
	return &e.Data, true
}

// Write persists the data set for year, replacing any prior entry.
func (c *Cache) Write(year int, data *ramadan.Data) error {
	e := entry{
		SchemaVersion: SchemaVersion,
		Data:          *data,
		Timestamp:     c.now().UnixMilli(),
		Year:          year,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.kv.SetValue(cacheKey(year), string(raw)); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// refresh recomputes the read-time fields of a re-hydrated data set.
func refresh(data *ramadan.Data, now time.Time) {
	data.CurrentDay = 0
	for i := range data.Days {
		d := &data.Days[i]
		d.IsToday = sameDay(d.Date, now.In(d.Date.Location()))
		if d.IsToday {
			data.CurrentDay = d.Number
		}
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
