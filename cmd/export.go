package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export marketplace data to spreadsheets",
}

var exportOffersCmd = &cobra.Command{
	Use:   "offers <listing-id>",
	Short: "Export a listing's offers to an XLSX workbook",
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
			return eris.Wrap(err, "export offers")
		}
		offers, err := st.ListOffers(ctx, model.OfferFilter{ListingID: l.ID})
		if err != nil {
			return eris.Wrap(err, "export offers")
		}

		out, _ := cmd.Flags().GetString("out")
		if err := writeOffersXLSX(out, l, offers); err != nil {
			return err
		}
		zap.L().Info("exported offers",
			zap.String("listing_id", l.ID),
			zap.Int("offers", len(offers)),
			zap.String("path", out),
		)
		return nil
	},
}

func init() {
	exportOffersCmd.Flags().String("out", "offers.xlsx", "output workbook path")
	exportCmd.AddCommand(exportOffersCmd)
	rootCmd.AddCommand(exportCmd)
}

var offerColumns = []string{
	"Offer ID", "Buyer", "Offer Price", "% of Asking", "Financing", "Earnest Money",
	"Inspection", "Financing Contingency", "Appraisal", "Closing Date",
	"Strength Score", "Status", "Submitted", "Expires",
}

// writeOffersXLSX writes one sheet with a row per offer.
func writeOffersXLSX(path string, l *model.Listing, offers []model.Offer) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Offers")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	title := sheet.AddRow()
	title.AddCell().SetString(l.Address())
	if l.ListPrice != nil {
		title.AddCell().SetString("Asking " + model.FormatUSD(*l.ListPrice))
	}

	header := sheet.AddRow()
	for _, name := range offerColumns {
		header.AddCell().SetString(name)
	}

	asking := l.Price()
	for _, o := range offers {
		row := sheet.AddRow()
		row.AddCell().SetString(o.ID)
		row.AddCell().SetString(o.BuyerID)
		row.AddCell().SetFloat(o.OfferPrice)
		pct := row.AddCell()
		if asking > 0 {
			pct.SetFloat(o.OfferPrice / asking * 100)
		}
		row.AddCell().SetString(string(o.FinancingType))
		row.AddCell().SetFloat(o.EarnestMoney)
		row.AddCell().SetString(contingency(o.InspectionContingency))
		row.AddCell().SetString(contingency(o.FinancingContingency))
		row.AddCell().SetString(contingency(o.AppraisalContingency))
		closing := row.AddCell()
		if o.ClosingDate != nil {
			closing.SetString(o.ClosingDate.Format("2006-01-02"))
		}
		row.AddCell().SetInt(o.AIStrengthScore)
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(o.CreatedAt.Format("2006-01-02 15:04"))
		row.AddCell().SetString(o.ExpiresAt.Format("2006-01-02 15:04"))
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func contingency(b bool) string {
	if b {
		return "kept"
	}
	return "waived"
}
