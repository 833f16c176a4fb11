package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smokyabdulrahman/ramadan-times/internal/remind"
	"github.com/spf13/cobra"
)

// rescheduleEvery is how often the daemon reloads the schedule. Matches the
// cache expiry so a location or settings change is picked up within the hour.
const rescheduleEvery = time.Hour

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder daemon",
		Long: "Stay resident and fire staged Sehri reminders (30 and 10 minutes before, " +
			"and at the deadline) and Iftar reminders (30 and 5 minutes before, and at the " +
			"time), as desktop notifications and optionally spoken aloud.",
		RunE: runRemindDaemon,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "say <message>",
		Short: "Speak a message using the stored voice settings",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRemindSay,
	})

	return cmd
}

func runRemindDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := remind.New(a.notifier, remind.NewEspeakSpeaker(), a.store.VoiceSettings)
	defer svc.Stop()

	loader := a.newLoader(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedule := func() {
		data, err := loader.Load(ctx, false)
		if err != nil {
			log.Warn().Err(err).Msg("reminder daemon: load failed")
			return
		}
		if data.CurrentDay == 0 {
			log.Info().Time("start", data.Window.Start).Msg("outside the fasting window, nothing to arm")
			return
		}

		day := data.Days[data.CurrentDay-1]

		// Arm tomorrow's Sehri alongside today's reminders; it can be less
		// than 30 minutes after midnight.
		var nextSehri time.Time
		nextDay := 0
		if data.CurrentDay < len(data.Days) {
			next := data.Days[data.CurrentDay]
			nextSehri, nextDay = next.Times.Sehri, next.Number
		}
		svc.ScheduleWindow(day.Times.Sehri, day.Times.Iftar, day.Number, nextSehri, nextDay)

		log.Info().
			Int("day", day.Number).
			Int("timers", svc.ActiveReminders()).
			Bool("speech", svc.SpeechAvailable()).
			Msg("reminders armed")
	}

	schedule()
	fmt.Println("Reminder daemon running; press Ctrl-C to stop.")

	ticker := time.NewTicker(rescheduleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopping.")
			return nil
		case <-ticker.C:
			schedule()
		}
	}
}

func runRemindSay(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := remind.New(a.notifier, remind.NewEspeakSpeaker(), a.store.VoiceSettings)
	defer svc.Stop()

	svc.Announce(strings.Join(args, " "))
	return nil
}
