package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fsbo/internal/market"
	"github.com/sells-group/fsbo/internal/rules"
)

var marketCmd = &cobra.Command{
	Use:   "market <zip>",
	Short: "Show market temperature for a zip code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Markets == nil {
			return eris.New("market: no statistics provider configured (FSBO_REALTYMOLE_KEY)")
		}
		rep, err := env.Markets.ForZip(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

var marketClassifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify market temperature from raw indicators",
	Long: `Scores market indicators with the active rule set. Omitted indicators use
the neutral defaults.

Example:
  market classify --dom 12 --change 6.5 --ratio 1.01`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := rules.LoadFile(cfg.RulesPath)
		if err != nil {
			return err
		}
		in := market.Indicators{}
		for name, dst := range map[string]**float64{
			"dom":    &in.DaysOnMarket,
			"change": &in.PriceChangePercent,
			"ratio":  &in.ListToSaleRatio,
		} {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetFloat64(name)
				*dst = &v
			}
		}
		formatTemperature(cmd.OutOrStdout(), market.NewClassifier(r.Market).Classify(in))
		return nil
	},
}

func init() {
	f := marketClassifyCmd.Flags()
	f.Float64("dom", 0, "average days on market")
	f.Float64("change", 0, "year-over-year median price change, percent")
	f.Float64("ratio", 0, "average sale-to-list price ratio")

	marketCmd.AddCommand(marketClassifyCmd)
	rootCmd.AddCommand(marketCmd)
}

func formatTemperature(out io.Writer, t market.Temperature) {
	_, _ = fmt.Fprintf(out, "%s (%d)\n", t.Label, t.Score)
}
