package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smokyabdulrahman/ramadan-times/internal/display"
	"github.com/smokyabdulrahman/ramadan-times/internal/hijri"
	"github.com/spf13/cobra"
)

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the full Ramadan calendar",
		Long:  "Display Sehri and Iftar times for every day of the month, with today highlighted.",
		RunE:  runCalendar,
	}
	cmd.Flags().Bool("refresh", false, "Bypass the cache and recompute from the API")
	return cmd
}

func runCalendar(cmd *cobra.Command, args []string) error {
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

	if FlagJSON {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(b))
		return nil
	}

	timeLayout := a.cfg.TimeLayout()
	hijriYear := hijri.FromGregorian(data.Window.Start).Year

	fmt.Println()
	fmt.Printf("  %s  %s\n", display.Boldf("Ramadan %d", hijriYear),
		display.Gray(fmt.Sprintf("%s – %s", data.Window.Start.Format("02 Jan"), data.Window.End.Format("02 Jan 2006"))))
	if data.Window.Adjustment.Enabled {
		fmt.Printf("  %s\n", display.Yellow(fmt.Sprintf("date adjustment: %+d day(s)", data.Window.Adjustment.DaysToAdd)))
	}
	fmt.Println()

	table := display.NewTable([]string{"Day", "Date", "Sehri", "Iftar"})
	anyApproximate := false
	for i, d := range data.Days {
		sehri := d.Times.Sehri.Format(timeLayout)
		iftar := d.Times.Iftar.Format(timeLayout)
		if d.Times.Approximate {
			sehri += "*"
			iftar += "*"
			anyApproximate = true
		}
		table.AddRow([]string{
			fmt.Sprintf("%d", d.Number),
			d.Date.Format("Mon 02 Jan"),
			sehri,
			iftar,
		})
		if d.IsToday {
			table.SetHighlightRow(i)
		}
	}
	fmt.Print(table.Render())

	if anyApproximate {
		fmt.Println()
		fmt.Printf("  %s\n", display.Dim("* approximate (API unavailable)"))
	}
	fmt.Println()
	return nil
}
