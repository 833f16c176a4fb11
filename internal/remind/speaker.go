package remind

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/smokyabdulrahman/ramadan-times/internal/store"
)

// Voice describes one installed speech voice.
type Voice struct {
	Language string
	Name     string
}

// Speaker synthesizes spoken reminders.
type Speaker interface {
	// Available reports whether the backend can speak at all.
	Available() bool
	// Speak says text with the given settings, blocking until done.
	// A backend that cannot speak returns ErrSpeechUnavailable.
	Speak(ctx context.Context, text string, settings store.VoiceSettings) error
	// Stop interrupts in-flight speech. No-op when idle.
	Stop()
	// ListVoices enumerates installed voices.
	ListVoices(ctx context.Context) ([]Voice, error)
}

// EspeakSpeaker speaks through the espeak command.
type EspeakSpeaker struct {
	// Command is the synthesizer binary. Defaults to espeak.
	Command string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewEspeakSpeaker creates a speaker backed by espeak.
func NewEspeakSpeaker() *EspeakSpeaker {
	return &EspeakSpeaker{Command: "espeak"}
}

// Available implements Speaker.
func (e *EspeakSpeaker) Available() bool {
	_, err := exec.LookPath(e.Command)
	return err == nil
}

// Speak implements Speaker.
func (e *EspeakSpeaker) Speak(ctx context.Context, text string, settings store.VoiceSettings) error {
	if !e.Available() {
		return fmt.Errorf("%w: %s not found", ErrSpeechUnavailable, e.Command)
	}

	// espeak units: amplitude 0-200 (default 100), speed in wpm
	// (default 175), pitch 0-99 (default 50). The stored settings use the
	// 0-1 volume and 1.0-neutral rate/pitch of the mobile TTS APIs.
	args := []string{
		"-v", espeakVoice(settings.Language),
		"-a", fmt.Sprintf("%d", clampInt(int(settings.Volume*200), 0, 200)),
		"-s", fmt.Sprintf("%d", clampInt(int(settings.Rate*175), 80, 450)),
		"-p", fmt.Sprintf("%d", clampInt(int(settings.Pitch*50), 0, 99)),
		text,
	}

	cmd := exec.CommandContext(ctx, e.Command, args...)
	e.mu.Lock()
	e.cmd = cmd
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.cmd = nil
		e.mu.Unlock()
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	return nil
}

// Stop implements Speaker.
func (e *EspeakSpeaker) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
}

// ListVoices implements Speaker by parsing `espeak --voices`.
func (e *EspeakSpeaker) ListVoices(ctx context.Context) ([]Voice, error) {
	if !e.Available() {
		return nil, fmt.Errorf("%w: %s not found", ErrSpeechUnavailable, e.Command)
	}

	out, err := exec.CommandContext(ctx, e.Command, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("listing voices: %w", err)
	}

	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for scanner.Scan() {
		if first { // header row
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{Language: fields[1], Name: fields[3]})
	}
	return voices, nil
}

// espeakVoice maps a BCP 47 tag like "en-US" onto an espeak voice code
// like "en-us".
func espeakVoice(language string) string {
	if language == "" {
		return "en"
	}
	return strings.ToLower(language)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NullSpeaker is a Speaker that cannot speak. It backs tests and hosts
// without a synthesizer; reminders degrade to text notifications.
type NullSpeaker struct{}

// Available implements Speaker.
func (NullSpeaker) Available() bool { return false }

// Speak implements Speaker.
func (NullSpeaker) Speak(context.Context, string, store.VoiceSettings) error {
	return ErrSpeechUnavailable
}

// Stop implements Speaker.
func (NullSpeaker) Stop() {}

// ListVoices implements Speaker.
func (NullSpeaker) ListVoices(context.Context) ([]Voice, error) {
	return nil, ErrSpeechUnavailable
}
