package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/ramadan-times/internal/display"
	"github.com/smokyabdulrahman/ramadan-times/internal/hijri"
	"github.com/smokyabdulrahman/ramadan-times/internal/prayer"
	"github.com/smokyabdulrahman/ramadan-times/internal/ramadan"
	"github.com/spf13/cobra"
)

func newTodayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's fasting schedule",
		Long:  "Display today's Sehri and Iftar times with the full prayer schedule and month progress.",
		RunE:  runToday,
	}
	cmd.Flags().Bool("refresh", false, "Bypass the cache and recompute from the API")
	return cmd
}

func runToday(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	refresh, _ := cmd.Flags().GetBool("refresh")

	data, err := a.newLoader(false).Load(context.Background(), refresh)
	if err != nil {
		return err
	}

	now := time.Now()

	if FlagJSON {
		return printTodayJSON(data, now, a.cfg.TimeLayout())
	}

	printTodayRich(data, now, a.cfg.TimeLayout())
	return nil
}

// printTodayRich renders the colored terminal output for today's schedule.
func printTodayRich(data *ramadan.Data, now time.Time, timeLayout string) {
	hijriYear := hijri.FromGregorian(data.Window.Start).Year

	fmt.Println()
	fmt.Printf("  %s\n", display.Boldf("Ramadan %d", hijriYear))
	fmt.Println()

	if data.CurrentDay == 0 {
		// Today is outside the fasting window.
		printUpcoming(data, now)
		return
	}

	day := data.Days[data.CurrentDay-1]

	fmt.Printf("  %s  %s\n", day.Date.Format("02 Jan 2006"), display.Gray(fmt.Sprintf("Day %d of Ramadan", day.Number)))
	fmt.Printf("  %s\n", display.ProgressBar(day.Number, data.TotalDays, 30))
	if day.Times.Approximate {
		fmt.Printf("  %s\n", display.Yellow("approximate times (API unavailable)"))
	}
	fmt.Println()

	next := day.Times.NextFastingEvent(now)

	for _, e := range day.Times.Events() {
		line := fmt.Sprintf("  %-8s %s", e.Name, e.Time.Format(timeLayout))
		switch {
		case next != nil && e.Name == next.Name && e.Time.Equal(next.Time):
			remaining := prayer.FormatRemaining(e.Time.Sub(now))
			fmt.Println(display.Accent(line) + display.Accent(fmt.Sprintf("  <- in %s", remaining)))
		case e.Time.Before(now):
			fmt.Println(display.Dim(line))
		default:
			fmt.Println(line)
		}
	}

	fmt.Println()

	if next == nil {
		fmt.Printf("  %s\n", display.Gray("Fast complete for today."))
		fmt.Println()
	}
}

// printUpcoming renders the pre/post-Ramadan view with a countdown to the
// next window start.
func printUpcoming(data *ramadan.Data, now time.Time) {
	start := data.Window.Start
	if now.Before(start) {
		days := int(start.Sub(now).Hours()/24) + 1
		fmt.Printf("  Ramadan begins %s %s\n", display.Bold(start.Format("02 Jan 2006")), display.Gray(fmt.Sprintf("(in %d days)", days)))
	} else {
		fmt.Printf("  Ramadan ended %s\n", display.Bold(data.Window.End.Format("02 Jan 2006")))
	}
	fmt.Println()
}

// todayJSON is the JSON output structure for the today command.
type todayJSON struct {
	HijriYear  int            `json:"hijriYear"`
	Window     ramadan.Window `json:"window"`
	Day        *ramadan.Day   `json:"day,omitempty"`
	TotalDays  int            `json:"totalDays"`
	CurrentDay int            `json:"currentDay"`
	Next       *todayJSONNext `json:"next,omitempty"`
}

type todayJSONNext struct {
	Event     string `json:"event"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(data *ramadan.Data, now time.Time, timeLayout string) error {
	out := todayJSON{
		HijriYear:  hijri.FromGregorian(data.Window.Start).Year,
		Window:     data.Window,
		TotalDays:  data.TotalDays,
		CurrentDay: data.CurrentDay,
	}

	if data.CurrentDay > 0 {
		day := data.Days[data.CurrentDay-1]
		out.Day = &day

		if next := day.Times.NextFastingEvent(now); next != nil {
			out.Next = &todayJSONNext{
				Event:     next.Name,
				Time:      next.Time.Format(timeLayout),
				Remaining: prayer.FormatRemaining(next.Time.Sub(now)),
			}
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(b))
	return nil
}
