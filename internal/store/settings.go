package store

import (
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smokyabdulrahman/ramadan-times/internal/hijri"
)

// Storage keys for the typed settings. Kept stable across releases; the
// cache and coordinates keys live with their owning packages.
const (
	keyNotifications  = "ramadan-notifications"
	keyVoice          = "ramadan-voice-settings"
	keyDateAdjustment = "ramadan-date-adjustment"
	keyManualTimes    = "ramadan-manual-times"
	keyLastScheduled  = "notifications-last-scheduled"
	keyLastChecked    = "last-update-check"
)

// NotificationSettings are the per-alert toggles.
type NotificationSettings struct {
	Sehri bool `json:"sehri"`
	Iftar bool `json:"iftar"`
}

// VoiceSettings control spoken reminders.
type VoiceSettings struct {
	Enabled  bool    `json:"enabled"`
	Language string  `json:"language"`
	Volume   float64 `json:"volume"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
}

// ManualTimeEntry is a user override for one day's Sehri/Iftar.
type ManualTimeEntry struct {
	Date  string `json:"date"`  // YYYY-MM-DD
	Sehri string `json:"sehri"` // HH:MM
	Iftar string `json:"iftar"` // HH:MM
}

// DefaultNotificationSettings has both alerts on.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{Sehri: true, Iftar: true}
}

// DefaultVoiceSettings enables speech with neutral tuning.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Enabled: true, Language: "en-US", Volume: 1.0, Rate: 1.0, Pitch: 1.0}
}

// NotificationSettings returns the stored toggles, or the defaults when
// unset or corrupt.
func (s *Store) NotificationSettings() NotificationSettings {
	out := DefaultNotificationSettings()
	s.getJSON(keyNotifications, &out)
	return out
}

// SetNotificationSettings persists the toggles.
func (s *Store) SetNotificationSettings(ns NotificationSettings) error {
	return s.setJSON(keyNotifications, ns)
}

// VoiceSettings returns the stored voice settings, or the defaults when
// unset or corrupt.
func (s *Store) VoiceSettings() VoiceSettings {
	out := DefaultVoiceSettings()
	s.getJSON(keyVoice, &out)
	return out
}

// SetVoiceSettings persists the voice settings.
func (s *Store) SetVoiceSettings(vs VoiceSettings) error {
	return s.setJSON(keyVoice, vs)
}

// DateAdjustment returns the stored moon-sighting adjustment; disabled when
// unset or corrupt.
func (s *Store) DateAdjustment() hijri.Adjustment {
	var out hijri.Adjustment
	s.getJSON(keyDateAdjustment, &out)
	return out
}

// SetDateAdjustment persists the moon-sighting adjustment.
func (s *Store) SetDateAdjustment(adj hijri.Adjustment) error {
	return s.setJSON(keyDateAdjustment, adj)
}

// ManualTimes returns all stored per-day overrides.
func (s *Store) ManualTimes() []ManualTimeEntry {
	var out []ManualTimeEntry
	s.getJSON(keyManualTimes, &out)
	return out
}

// SaveManualTime upserts the override for its date.
func (s *Store) SaveManualTime(entry ManualTimeEntry) error {
	entries := s.ManualTimes()
	replaced := false
	for i := range entries {
		if entries[i].Date == entry.Date {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return s.setJSON(keyManualTimes, entries)
}

// ManualTimeFor returns the override for a calendar day, if any.
func (s *Store) ManualTimeFor(date time.Time) (ManualTimeEntry, bool) {
	want := date.Format("2006-01-02")
	for _, e := range s.ManualTimes() {
		if e.Date == want {
			return e, true
		}
	}
	return ManualTimeEntry{}, false
}

// LastScheduledAt returns when notifications were last scheduled.
func (s *Store) LastScheduledAt() (time.Time, bool) {
	return s.getTime(keyLastScheduled)
}

// SetLastScheduledAt records a completed notification scheduling run.
func (s *Store) SetLastScheduledAt(t time.Time) error {
	return s.SetValue(keyLastScheduled, t.UTC().Format(time.RFC3339))
}

// LastUpdateCheck returns when the app last checked for updates.
func (s *Store) LastUpdateCheck() (time.Time, bool) {
	return s.getTime(keyLastChecked)
}

// SetLastUpdateCheck records an update check.
func (s *Store) SetLastUpdateCheck(t time.Time) error {
	return s.SetValue(keyLastChecked, t.UTC().Format(time.RFC3339))
}

// getJSON unmarshals the value for key into out. Missing keys are silent;
// corrupt values are logged and leave out untouched, so callers fall back
// to their defaults.
func (s *Store) getJSON(key string, out any) {
	raw, err := s.GetValue(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("failed to read setting")
		}
		return
	}
	// Decode into a scratch copy first: Unmarshal fills well-typed fields
	// before reporting a mismatch, which would leave out half-populated.
	dst := reflect.ValueOf(out).Elem()
	tmp := reflect.New(dst.Type())
	tmp.Elem().Set(dst)
	if err := json.Unmarshal([]byte(raw), tmp.Interface()); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("corrupt setting, using defaults")
		return
	}
	dst.Set(tmp.Elem())
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.SetValue(key, string(data))
}

func (s *Store) getTime(key string) (time.Time, bool) {
	raw, err := s.GetValue(key)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("corrupt timestamp, ignoring")
		return time.Time{}, false
	}
	return t, true
}
