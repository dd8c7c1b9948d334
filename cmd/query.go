package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "score <subject>",
		Short: "Compute, store and print a score for one subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := wire(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = comps.Close() }()

			score, err := comps.orchestrator.ComputeAndStoreScore(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), score)
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history <subject>",
		Short: "Print stored score history, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 || days > c.cfg.MaxHistoryDays {
				return fmt.Errorf("--days must be between 1 and %d", c.cfg.MaxHistoryDays)
			}
			ctx := cmd.Context()
			comps, err := wire(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = comps.Close() }()

			entries, err := comps.orchestrator.GetScoreHistory(ctx, args[0], days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "number of days of history")
	return cmd
}

func newInterventionsCmd(c *cli) *cobra.Command {
	var resolve string

	cmd := &cobra.Command{
		Use:   "interventions <subject>",
		Short: "Print active interventions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := wire(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = comps.Close() }()

			if resolve != "" {
				if err := comps.orchestrator.ResolveIntervention(ctx, resolve); err != nil {
					return err
				}
			}
			in, err := comps.orchestrator.GetActiveInterventions(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), in)
		},
	}
	cmd.Flags().StringVar(&resolve, "resolve", "", "resolve the intervention with this id before listing")
	return cmd
}
