package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/ramadan-times/internal/prayer"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "One-line output for status bars",
		Long: "Print a single line with the next fasting event, suitable for tmux or " +
			"desktop status bars.\n\nBuilt-in formats: name-and-remaining (default), " +
			"name-and-time, time, remaining. A format containing '{{' is treated as a " +
			"Go template over .Name, .ShortName, .Time, .Remaining, .Hours, .Minutes.",
		RunE: runStatus,
	}
	cmd.Flags().String("format", "name-and-remaining", "Output format or Go template")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	format, _ := cmd.Flags().GetString("format")

	data, err := a.newLoader(false).Load(context.Background(), false)
	if err != nil {
		return err
	}

	now := time.Now()

	if data.CurrentDay == 0 {
		// Outside the window: show days until the next start, or nothing
		// once the month has passed (the loader already rolled the window).
		if now.Before(data.Window.Start) {
			days := int(data.Window.Start.Sub(now).Hours()/24) + 1
			fmt.Printf("Ramadan in %dd", days)
		}
		return nil
	}

	day := data.Days[data.CurrentDay-1]
	next := day.Times.NextFastingEvent(now)

	// After Iftar, point at tomorrow's Sehri.
	if next == nil && data.CurrentDay < len(data.Days) {
		tomorrow := data.Days[data.CurrentDay]
		next = &prayer.Event{Name: "Sehri", Time: tomorrow.Times.Sehri}
	}
	if next == nil {
		// Last Iftar of the month has passed.
		fmt.Print("Eid Mubarak")
		return nil
	}

	fmt.Print(prayer.FormatEvent(*next, now, format, a.cfg.TimeLayout()))
	return nil
}
