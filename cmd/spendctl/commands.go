package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/personality"
	"github.com/okian/spendlens/internal/domain/types"
)

func newTrainCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train both population models and store them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, _, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(context.WithoutCancel(ctx)) }()

			res, err := svc.Train(ctx)
			if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
				return werr
			}
			if errors.Is(err, personality.ErrInsufficientPopulation) || errors.Is(err, anomaly.ErrInsufficientSamples) {
				return fmt.Errorf("cannot train: %w", err)
			}
			return err
		},
	}
	flags.eventsFlag(cmd)
	return cmd
}

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one subject, or every subject in the file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, pop, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(context.WithoutCancel(ctx)) }()

			ids := pop.subjects
			if subject != "" {
				ids = []string{subject}
			}
			out := make([]types.Analysis, 0, len(ids))
			for _, id := range ids {
				a, err := svc.Analyze(ctx, id)
				if err != nil {
					return err
				}
				out = append(out, a)
			}
			if subject != "" {
				return writeJSON(cmd.OutOrStdout(), out[0])
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	flags.eventsFlag(cmd)
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject to analyze")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
