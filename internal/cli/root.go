// Package cli wires the ramadan-times commands: the fasting schedule views,
// location management, settings, notification scheduling, and the reminder
// daemon.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/smokyabdulrahman/ramadan-times/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global flags shared across all subcommands.
var (
	FlagLatitude   float64
	FlagLongitude  float64
	FlagMethod     int
	FlagDataDir    string
	FlagJSON       bool
	FlagTimeFormat string
	FlagVerbose    bool
)

// loadedConfig holds the config loaded during PersistentPreRunE.
// Available to all subcommand handlers.
var loadedConfig *config.Config

// NewRootCmd creates the root command for the ramadan-times CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ramadan-times",
		Short:   "Ramadan fasting schedule CLI",
		Long:    "Sehri and Iftar times for the whole month of Ramadan, with desktop notifications and spoken reminders.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if FlagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			loadedConfig = cfg
			return nil
		},
		// Default action: show today's fasting schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Register global persistent flags.
	pf := rootCmd.PersistentFlags()
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Override latitude")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Override longitude")
	pf.IntVar(&FlagMethod, "method", -1, "Override calculation method (0-23)")
	pf.StringVar(&FlagDataDir, "data-dir", "", "Data directory (default: ~/.local/share/ramadan-times/)")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.BoolVarP(&FlagVerbose, "verbose", "v", false, "Enable debug logging")

	// Register subcommands.
	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newCalendarCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newLocationCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newNotifyCmd())
	rootCmd.AddCommand(newRemindCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMethodsCmd())

	return rootCmd
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > config file > defaults.
// It uses cobra's Changed() to detect whether a flag was explicitly set.
func effectiveConfig(cmd *cobra.Command) *config.Config {
	cfg := loadedConfig
	if cfg == nil {
		empty := config.Config{}
		cfg = &empty
	}

	defaults := config.Defaults()

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	if flagWasSet(flags, root, "method") {
		cfg.Method = &FlagMethod
	} else if cfg.Method == nil {
		cfg.Method = defaults.Method
	}
	// Data dir and API base URL may also come from the environment (or a
	// .env file loaded at startup), below flags and the config file.
	if flagWasSet(flags, root, "data-dir") {
		cfg.DataDir = FlagDataDir
	} else if cfg.DataDir == "" {
		cfg.DataDir = os.Getenv("RAMADAN_TIMES_DATA_DIR")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = os.Getenv("RAMADAN_TIMES_API_BASE_URL")
	}

	// Time format: CLI flag > config > default ("24h").
	if flagWasSet(flags, root, "time-format") {
		cfg.TimeFormat = FlagTimeFormat
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = defaults.TimeFormat
	}

	return cfg
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}
