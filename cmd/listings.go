package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fsbo/internal/model"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Inspect listings",
}

// -- listings list --

var listingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List listings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f := cmd.Flags()
		status, _ := f.GetString("status")
		seller, _ := f.GetString("seller")
		city, _ := f.GetString("city")
		zip, _ := f.GetString("zip")
		limit, _ := f.GetInt("limit")

		filter := model.ListingFilter{
			Status:   model.ListingStatus(status),
			SellerID: seller,
			City:     city,
			ZipCode:  zip,
			Limit:    limit,
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return eris.Wrapf(model.ErrInvalidStatus, "%q", status)
		}

		listings, err := st.SearchListings(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "listings list")
		}
		if len(listings) == 0 {
			fmt.Fprintln(os.Stderr, "No listings found.")
			return nil
		}

		formatListingsList(cmd.OutOrStdout(), listings)
		return nil
	},
}

// -- listings show --

var listingsShowCmd = &cobra.Command{
	Use:   "show <listing-id>",
	Short: "Show a listing with its latest valuation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		l, err := st.GetListing(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "listings show")
		}
		out := struct {
			*model.Listing
			Valuation *model.Valuation `json:"valuation,omitempty"`
		}{Listing: l}
		if v, err := st.LatestValuation(ctx, l.ID); err == nil {
			out.Valuation = v
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	f := listingsListCmd.Flags()
	f.String("status", "", "filter by status (draft, pending_review, active, under_contract, sold, withdrawn, expired)")
	f.String("seller", "", "filter by seller ID")
	f.String("city", "", "filter by city")
	f.String("zip", "", "filter by zip code")
	f.Int("limit", 50, "max number of listings to display")

	listingsCmd.AddCommand(listingsListCmd)
	listingsCmd.AddCommand(listingsShowCmd)
	rootCmd.AddCommand(listingsCmd)
}

// formatListingsList writes a tabular list of listings to w.
func formatListingsList(out io.Writer, listings []model.Listing) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tADDRESS\tSTATUS\tPRICE\tESTIMATE\tVIEWS\tUPDATED")
	for _, l := range listings {
		price, estimate := "-", "-"
		if l.ListPrice != nil {
			price = model.FormatUSD(*l.ListPrice)
		}
		if l.AIEstimatedValue != nil {
			estimate = model.FormatUSD(*l.AIEstimatedValue)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(l.ID), l.Address(), l.Status, price, estimate, l.ViewCount,
			l.UpdatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
