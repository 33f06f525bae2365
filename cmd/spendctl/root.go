package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/spendlens/internal/adapters/repository"
	service "github.com/okian/spendlens/internal/app"
	"github.com/okian/spendlens/internal/config"
	"github.com/okian/spendlens/pkg/logger"
)

type rootFlags struct {
	events     string
	modelStore string
	modelDir   string
	windowDays int
	verbose    bool
}

// eventsFlag registers the input file flag on commands that read events.
func (f *rootFlags) eventsFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.events, "events", "e", "", "JSON file with an array of purchase events (required)")
	_ = cmd.MarkFlagRequired("events")
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "spendctl",
		Short: "Offline training and analysis of purchase events",
		Long: `spendctl reads a JSON array of purchase events in the POST /events
format, trains the population models or analyzes subjects, and stores models
where the server reads them. It can also drive a running server with
generated load.

Configuration is loaded like the server's (SPENDLENS_CONFIG, SPENDLENS_*);
flags override it.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.modelStore, "model-store", "", "model store backend: memory, file or badger")
	root.PersistentFlags().StringVar(&flags.modelDir, "model-dir", "", "model store directory")
	root.PersistentFlags().IntVar(&flags.windowDays, "window-days", 0, "length of the recent window in days")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newTrainCmd(flags), newAnalyzeCmd(flags), newLoadCmd())
	return root
}

// loadConfig layers the flags over the loaded configuration.
func (f *rootFlags) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if f.modelStore != "" {
		cfg.ModelStore = f.modelStore
	}
	if f.modelDir != "" {
		cfg.ModelDir = f.modelDir
	}
	if f.windowDays > 0 {
		cfg.WindowDays = f.windowDays
	}
	cfg.EventStore = config.StoreMemory
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open starts a service whose event store holds the events of the input
// file. The caller stops it.
func (f *rootFlags) open(ctx context.Context) (*service.Service, *population, error) {
	cfg, err := f.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	pop, err := readEvents(f.events)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(); err != nil {
		return nil, nil, err
	}
	logger.SetOutput(os.Stderr)
	level := "warn"
	if f.verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)
	log := logger.Get().Named("spendctl")

	store := repository.NewMemoryStore(ctx)
	for _, e := range pop.events {
		if _, err := store.Append(ctx, e); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("load event %s: %w", e.ID, err)
		}
	}

	svc := service.New(cfg, service.WithLogger(log), service.WithEventStore(store))
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, pop, nil
}
