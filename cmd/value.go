package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var valueCmd = &cobra.Command{
	Use:   "value <listing-id>",
	Short: "Value a listing from live provider data",
	Long:  "Fetches direct, secondary and tax-assessed estimates plus comparable sales for a listing, blends them, stores the valuation and prints it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("valuation"); err != nil {
			return err
		}
		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Valuations == nil {
			return eris.New("value: no valuation provider configured")
		}
		v, err := env.Valuations.Value(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "value")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	},
}

func init() {
	rootCmd.AddCommand(valueCmd)
}
