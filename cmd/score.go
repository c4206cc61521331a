package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/offer"
	"github.com/sells-group/fsbo/internal/rules"
)

var scoreOfferCmd = &cobra.Command{
	Use:   "score-offer",
	Short: "Score an offer's strength without storing it",
	Long: `Scores an offer against the asking price with the active rule set.

Examples:
  # Cash offer at asking with every contingency kept
  score-offer --price 500000 --list-price 500000 --financing cash

  # FHA offer under asking with inspection and appraisal waived
  score-offer --price 440000 --list-price 500000 --financing fha --earnest 4400 --waive-inspection --waive-appraisal`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		price, _ := f.GetFloat64("price")
		listPrice, _ := f.GetFloat64("list-price")
		earnest, _ := f.GetFloat64("earnest")
		financing, _ := f.GetString("financing")
		waiveInspection, _ := f.GetBool("waive-inspection")
		waiveFinancing, _ := f.GetBool("waive-financing")
		waiveAppraisal, _ := f.GetBool("waive-appraisal")

		if price <= 0 {
			return eris.New("score-offer: --price must be positive")
		}
		ft := model.FinancingType(financing)
		switch ft {
		case model.FinancingCash, model.FinancingConventional, model.FinancingFHA, model.FinancingVA, model.FinancingOther:
		default:
			return eris.Errorf("score-offer: unknown financing type %q", financing)
		}

		r, err := rules.LoadFile(cfg.RulesPath)
		if err != nil {
			return err
		}
		a := offer.NewScorer(r.Offer).Score(offer.Input{
			OfferPrice:            price,
			ListingPrice:          listPrice,
			EarnestMoney:          earnest,
			Financing:             ft,
			InspectionContingency: !waiveInspection,
			FinancingContingency:  !waiveFinancing,
			AppraisalContingency:  !waiveAppraisal,
		})
		formatAssessment(cmd.OutOrStdout(), a)
		return nil
	},
}

func init() {
	f := scoreOfferCmd.Flags()
	f.Float64("price", 0, "offer price")
	f.Float64("list-price", 0, "listing's asking price")
	f.Float64("earnest", 0, "earnest money deposit")
	f.String("financing", "conventional", "financing type: cash, conventional, fha, va, other")
	f.Bool("waive-inspection", false, "waive the inspection contingency")
	f.Bool("waive-financing", false, "waive the financing contingency")
	f.Bool("waive-appraisal", false, "waive the appraisal contingency")
	rootCmd.AddCommand(scoreOfferCmd)
}

// formatAssessment writes an offer score and its factors to out.
func formatAssessment(out io.Writer, a offer.Assessment) {
	_, _ = fmt.Fprintf(out, "Score: %d\n", a.Score)
	_, _ = fmt.Fprintf(out, "%s\n", a.Recommendation)
	if a.PriceRatio > 0 {
		_, _ = fmt.Fprintf(out, "Price ratio: %.3f\n", a.PriceRatio)
	}
	if len(a.Factors) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FACTOR\tDELTA")
	for _, f := range a.Factors {
		_, _ = fmt.Fprintf(w, "%s\t%+.0f\n", f.Name, f.Delta)
	}
	_ = w.Flush()
}
