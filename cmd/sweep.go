package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/fsbo/internal/scheduler"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire stale offers and listings once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := scheduler.New(scheduler.Jobs(cfg.Offers, cfg.Listings, env.Offers, env.Listings))
		if err != nil {
			return err
		}
		counts, err := s.RunOnce(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "expired %d offers, %d listings\n", counts["offers"], counts["listings"])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
