package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/ramadan-times/internal/display"
	"github.com/smokyabdulrahman/ramadan-times/internal/hijri"
	"github.com/smokyabdulrahman/ramadan-times/internal/remind"
	"github.com/smokyabdulrahman/ramadan-times/internal/store"
	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
		Long:  "Without a subcommand, prints all stored settings: notification toggles, voice options, the Hijri date adjustment, and manual time overrides.",
		RunE:  runSettingsShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "notifications <sehri|iftar> <on|off>",
		Short: "Toggle Sehri or Iftar notifications",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsNotifications,
	})

	voiceCmd := &cobra.Command{
		Use:   "voice <key> <value>",
		Short: "Change voice reminder options",
		Long:  "Keys: enabled (on/off), language (e.g. en-US), volume, rate, pitch (0.0-2.0).",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsVoice,
	}
	voiceCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available speech voices",
		Args:  cobra.NoArgs,
		RunE:  runSettingsVoiceList,
	})
	cmd.AddCommand(voiceCmd)

	adjustCmd := &cobra.Command{
		Use:   "adjust <days>",
		Short: "Shift the computed Ramadan start by N days",
		Long:  "Apply a manual Hijri date adjustment for local moon sighting. 0 disables the adjustment.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsAdjust,
	}
	adjustCmd.Flags().String("reason", "", "Reason recorded with the adjustment")
	cmd.AddCommand(adjustCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "manual <date> <sehri> <iftar>",
		Short: "Override times for one day",
		Long:  "Store manual Sehri and Iftar times for a date. Date format: 2006-01-02, times: 15:04.\nManual entries take precedence over computed times.",
		Args:  cobra.ExactArgs(3),
		RunE:  runSettingsManual,
	})

	return cmd
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ns := a.store.NotificationSettings()
	vs := a.store.VoiceSettings()
	adj := a.store.DateAdjustment()

	fmt.Println()
	fmt.Printf("  %s\n", display.Bold("Notifications"))
	fmt.Print(display.KeyValues([][2]string{
		{"sehri", onOff(ns.Sehri)},
		{"iftar", onOff(ns.Iftar)},
	}))
	fmt.Println()

	fmt.Printf("  %s\n", display.Bold("Voice reminders"))
	fmt.Print(display.KeyValues([][2]string{
		{"enabled", onOff(vs.Enabled)},
		{"language", vs.Language},
		{"volume", strconv.FormatFloat(vs.Volume, 'f', 1, 64)},
		{"rate", strconv.FormatFloat(vs.Rate, 'f', 1, 64)},
		{"pitch", strconv.FormatFloat(vs.Pitch, 'f', 1, 64)},
	}))
	fmt.Println()

	fmt.Printf("  %s\n", display.Bold("Date adjustment"))
	if adj.Enabled {
		fmt.Print(display.KeyValues([][2]string{
			{"days", fmt.Sprintf("%+d", adj.DaysToAdd)},
			{"reason", adj.Reason},
		}))
	} else {
		fmt.Printf("  %s\n", display.Dim("(disabled)"))
	}
	fmt.Println()

	if manual := a.store.ManualTimes(); len(manual) > 0 {
		fmt.Printf("  %s\n", display.Bold("Manual overrides"))
		table := display.NewTable([]string{"Date", "Sehri", "Iftar"})
		for _, m := range manual {
			table.AddRow([]string{m.Date, m.Sehri, m.Iftar})
		}
		fmt.Print(table.Render())
		fmt.Println()
	}

	return nil
}

func runSettingsNotifications(cmd *cobra.Command, args []string) error {
	which, value := args[0], args[1]

	on, err := parseOnOff(value)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ns := a.store.NotificationSettings()
	switch which {
	case "sehri":
		ns.Sehri = on
	case "iftar":
		ns.Iftar = on
	default:
		return fmt.Errorf("unknown notification %q: must be \"sehri\" or \"iftar\"", which)
	}

	if err := a.store.SetNotificationSettings(ns); err != nil {
		return err
	}

	fmt.Printf("Set %s notifications %s\n", which, onOff(on))
	return nil
}

func runSettingsVoice(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	vs := a.store.VoiceSettings()
	switch key {
	case "enabled":
		on, err := parseOnOff(value)
		if err != nil {
			return err
		}
		vs.Enabled = on
	case "language":
		vs.Language = value
	case "volume", "rate", "pitch":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || v > 2 {
			return fmt.Errorf("invalid %s %q: must be a number between 0.0 and 2.0", key, value)
		}
		switch key {
		case "volume":
			vs.Volume = v
		case "rate":
			vs.Rate = v
		case "pitch":
			vs.Pitch = v
		}
	default:
		return fmt.Errorf("unknown voice key %q: valid keys: enabled, language, volume, rate, pitch", key)
	}

	if err := a.store.SetVoiceSettings(vs); err != nil {
		return err
	}

	fmt.Printf("Set voice %s = %s\n", key, value)
	return nil
}

func runSettingsVoiceList(cmd *cobra.Command, args []string) error {
	voices, err := remind.NewEspeakSpeaker().ListVoices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	table := display.NewTable([]string{"Language", "Name"})
	for _, v := range voices {
		table.AddRow([]string{v.Language, v.Name})
	}
	fmt.Println()
	fmt.Print(table.Render())
	fmt.Println()
	return nil
}

func runSettingsAdjust(cmd *cobra.Command, args []string) error {
	days, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid adjustment %q: must be an integer number of days", args[0])
	}
	if days < -2 || days > 2 {
		return fmt.Errorf("invalid adjustment %d: must be between -2 and 2 days", days)
	}
	reason, _ := cmd.Flags().GetString("reason")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	adj := hijri.Adjustment{Enabled: days != 0, DaysToAdd: days, Reason: reason}
	if err := a.store.SetDateAdjustment(adj); err != nil {
		return err
	}

	if adj.Enabled {
		fmt.Printf("Ramadan start shifted by %+d day(s). Run with --refresh to recompute.\n", days)
	} else {
		fmt.Println("Date adjustment disabled. Run with --refresh to recompute.")
	}
	return nil
}

func runSettingsManual(cmd *cobra.Command, args []string) error {
	date, sehri, iftar := args[0], args[1], args[2]

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: use the 2006-01-02 format", date)
	}
	for _, clock := range []string{sehri, iftar} {
		if _, err := time.Parse("15:04", clock); err != nil {
			return fmt.Errorf("invalid time %q: use the 15:04 format", clock)
		}
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entry := store.ManualTimeEntry{Date: date, Sehri: sehri, Iftar: iftar}
	if err := a.store.SaveManualTime(entry); err != nil {
		return err
	}

	fmt.Printf("Manual times stored for %s: Sehri %s, Iftar %s\n", date, sehri, iftar)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid value %q: must be \"on\" or \"off\"", s)
	}
}
