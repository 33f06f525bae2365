package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/okian/spendlens/internal/loadgen"
	"github.com/okian/spendlens/pkg/logger"
)

func newLoadCmd() *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit generated purchase histories to a running server",
		Example: `  spendctl load --url http://localhost:9080 --subjects 200 --train
  spendctl load --subjects 20 --output events.json && spendctl train -e events.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			logger.SetOutput(os.Stderr)
			stats, err := loadgen.Run(cmd.Context(), cfg, logger.Get().Named("load"))
			if werr := writeJSON(cmd.OutOrStdout(), stats); werr != nil {
				return werr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the server")
	f.IntVar(&cfg.Subjects, "subjects", loadgen.DefaultSubjects, "number of subjects")
	f.IntVar(&cfg.Days, "days", loadgen.DefaultDays, "days of history per subject")
	f.IntVar(&cfg.EventsPerDay, "per-day", loadgen.DefaultEventsPerDay, "purchases per subject per day")
	f.IntVar(&cfg.DuplicateEvery, "duplicate-every", 0, "resend every n-th event")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent requests")
	f.DurationVar(&cfg.Timeout, "timeout", loadgen.DefaultTimeout, "per-request timeout")
	f.DurationVar(&cfg.Settle, "settle", loadgen.DefaultSettle, "how long to wait for ingestion to catch up")
	f.BoolVar(&cfg.Train, "train", false, "train models before analyzing")
	f.Uint64Var(&cfg.Seed, "seed", 1, "generator seed")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "also write the generated events to this file")
	return cmd
}
