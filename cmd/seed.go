package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/seed"
)

func newSeedCmd(c *cli) *cobra.Command {
	var (
		subjects int
		days     int
		prefix   string
		rngSeed  uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic activity for demo subjects into the SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			comps, err := wire(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = comps.Close() }()

			if comps.activity == nil {
				return errors.New("seed needs metrics_source=sqlite")
			}

			sum, err := seed.New(comps.activity,
				seed.WithSubjects(subjects),
				seed.WithDays(days),
				seed.WithPrefix(prefix),
				seed.WithSeed(rngSeed),
				seed.WithLogger(c.log.Named("seed")),
			).Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().IntVar(&subjects, "subjects", 10, "number of subjects to generate")
	cmd.Flags().IntVar(&days, "days", 14, "trailing days of activity per subject")
	cmd.Flags().StringVar(&prefix, "prefix", "demo-", "subject id prefix")
	cmd.Flags().Uint64Var(&rngSeed, "seed", 1, "random seed; equal seeds give equal activity")
	return cmd
}
