package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fsbo/internal/model"
)

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Inspect offers",
}

var offersListCmd = &cobra.Command{
	Use:   "list <listing-id>",
	Short: "List the offers on a listing, strongest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		offers, err := st.ListOffers(ctx, model.OfferFilter{
			ListingID: args[0],
			Status:    model.OfferStatus(status),
		})
		if err != nil {
			return eris.Wrap(err, "offers list")
		}
		if len(offers) == 0 {
			fmt.Fprintln(os.Stderr, "No offers found.")
			return nil
		}

		slices.SortStableFunc(offers, func(a, b model.Offer) int {
			return b.AIStrengthScore - a.AIStrengthScore
		})
		formatOffersList(cmd.OutOrStdout(), offers)
		return nil
	},
}

func init() {
	offersListCmd.Flags().String("status", "", "filter by status (pending, accepted, rejected, countered, withdrawn, expired)")
	offersCmd.AddCommand(offersListCmd)
	rootCmd.AddCommand(offersCmd)
}

// formatOffersList writes a tabular list of offers to w.
func formatOffersList(out io.Writer, offers []model.Offer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tBUYER\tPRICE\tFINANCING\tSCORE\tSTATUS\tEXPIRES")
	for _, o := range offers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(o.ID), o.BuyerID, model.FormatUSD(o.OfferPrice), o.FinancingType,
			o.AIStrengthScore, o.Status, o.ExpiresAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
