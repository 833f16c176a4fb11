package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/smokyabdulrahman/ramadan-times/internal/display"
	"github.com/smokyabdulrahman/ramadan-times/internal/geo"
	"github.com/spf13/cobra"
)

func newLocationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Show or change the stored location",
		Long:  "Without a subcommand, prints the stored location. Times are recomputed on the next load after the location changes.",
		RunE:  runLocationShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "detect",
		Short: "Detect location via IP geolocation and store it",
		RunE:  runLocationDetect,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <latitude> <longitude>",
		Short: "Store a fixed location",
		Args:  cobra.ExactArgs(2),
		RunE:  runLocationSet,
	})

	return cmd
}

func runLocationShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pos, ok := a.gate.Cached()
	if !ok {
		return fmt.Errorf("no stored location; run `ramadan-times location detect` or `location set`")
	}

	return printPosition(pos)
}

func runLocationDetect(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pos, err := a.gate.Current(context.Background())
	if err != nil {
		return err
	}

	return printPosition(pos)
}

func runLocationSet(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q: must be a number", args[0])
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q: must be a number", args[1])
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pos := geo.Position{Coordinates: geo.Coordinates{Latitude: lat, Longitude: lon}}
	if err := a.gate.Set(pos); err != nil {
		return err
	}

	fmt.Printf("Location set to %.4f, %.4f\n", lat, lon)
	return nil
}

func printPosition(pos geo.Position) error {
	if FlagJSON {
		b, err := json.MarshalIndent(pos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(b))
		return nil
	}

	place := ""
	if pos.City != "" {
		place = pos.City
		if pos.Country != "" {
			place += ", " + pos.Country
		}
	}

	fmt.Println()
	fmt.Print(display.KeyValues([][2]string{
		{"latitude", strconv.FormatFloat(pos.Latitude, 'f', 4, 64)},
		{"longitude", strconv.FormatFloat(pos.Longitude, 'f', 4, 64)},
		{"place", place},
		{"timezone", pos.Timezone},
	}))
	fmt.Println()
	return nil
}
