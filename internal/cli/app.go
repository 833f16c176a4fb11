package cli

import (
	"fmt"

	"github.com/smokyabdulrahman/ramadan-times/internal/cache"
	"github.com/smokyabdulrahman/ramadan-times/internal/config"
	"github.com/smokyabdulrahman/ramadan-times/internal/geo"
	"github.com/smokyabdulrahman/ramadan-times/internal/notify"
	"github.com/smokyabdulrahman/ramadan-times/internal/prayer"
	"github.com/smokyabdulrahman/ramadan-times/internal/service"
	"github.com/smokyabdulrahman/ramadan-times/internal/store"
	"github.com/spf13/cobra"
)

// app bundles the wired components a subcommand needs. Built per invocation
// from the merged config; Close releases the store.
type app struct {
	cfg       *config.Config
	store     *store.Store
	gate      *geo.Gate
	calc      *prayer.AladhanCalculator
	cache     *cache.Cache
	notifier  notify.Notifier
	scheduler *notify.Scheduler
}

// newApp opens the store and wires the location gate, calculator, and cache.
// When --latitude/--longitude were passed, the position is pinned before any
// command logic runs.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg := effectiveConfig(cmd)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}

	gate := geo.NewGate(geo.NewIPProvider(), st)

	calc := prayer.NewAladhanCalculator(cfg.MethodOrDefault(config.DefaultMethod))
	if cfg.APIBaseURL != "" {
		calc.BaseURL = cfg.APIBaseURL
	}

	notifier := notify.NewExecNotifier()

	a := &app{
		cfg:       cfg,
		store:     st,
		gate:      gate,
		calc:      calc,
		cache:     cache.New(st),
		notifier:  notifier,
		scheduler: notify.NewScheduler(notifier, st),
	}

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()
	if flagWasSet(flags, root, "latitude") || flagWasSet(flags, root, "longitude") {
		pos := geo.Position{Coordinates: geo.Coordinates{Latitude: FlagLatitude, Longitude: FlagLongitude}}
		if err := gate.Set(pos); err != nil {
			st.Close()
			return nil, err
		}
	}

	return a, nil
}

// newLoader builds a load pipeline. Display commands pass schedule=false so a
// plain `today` never arms notification timers that die with the process;
// the notify and remind commands pass true.
func (a *app) newLoader(schedule bool) *service.Loader {
	var sched *notify.Scheduler
	if schedule {
		sched = a.scheduler
	}
	return service.NewLoader(a.gate, a.calc, a.cache, sched, a.store)
}

func (a *app) Close() error {
	return a.store.Close()
}
