package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/offer"
	"github.com/sells-group/fsbo/internal/validate"
)

// scoreRequest previews an offer's strength without storing anything.
// Omitted contingencies count as kept.
type scoreRequest struct {
	OfferPrice            float64 `json:"offer_price" validate:"required,gte=1"`
	ListPrice             float64 `json:"list_price" validate:"gte=0"`
	EarnestMoney          float64 `json:"earnest_money" validate:"gte=0"`
	FinancingType         string  `json:"financing_type" validate:"required,oneof=cash conventional fha va other"`
	InspectionContingency *bool   `json:"inspection_contingency,omitempty"`
	FinancingContingency  *bool   `json:"financing_contingency,omitempty"`
	AppraisalContingency  *bool   `json:"appraisal_contingency,omitempty"`
}

func kept(p *bool) bool { return p == nil || *p }

func (h *handler) scoreOffer(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	a := h.Scorer.Score(offer.Input{
		OfferPrice:            req.OfferPrice,
		ListingPrice:          req.ListPrice,
		EarnestMoney:          req.EarnestMoney,
		Financing:             model.FinancingType(req.FinancingType),
		InspectionContingency: kept(req.InspectionContingency),
		FinancingContingency:  kept(req.FinancingContingency),
		AppraisalContingency:  kept(req.AppraisalContingency),
	})
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) marketForZip(w http.ResponseWriter, r *http.Request) {
	if h.Markets == nil {
		writeError(w, r, errNotConfigured)
		return
	}
	rep, err := h.Markets.ForZip(r.Context(), chi.URLParam(r, "zip"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// suggestion is one address completion.
type suggestion struct {
	PlaceID   string `json:"place_id"`
	Text      string `json:"text"`
	Main      string `json:"main,omitempty"`
	Secondary string `json:"secondary,omitempty"`
}

func (h *handler) autocomplete(w http.ResponseWriter, r *http.Request) {
	if h.Places == nil {
		writeError(w, r, errNotConfigured)
		return
	}
	input := strings.TrimSpace(r.URL.Query().Get("input"))
	if len(input) < 3 {
		writeError(w, r, validate.Field("input", "must be at least 3 characters"))
		return
	}

	resp, err := h.Places.Autocomplete(r.Context(), input, r.URL.Query().Get("session"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]suggestion, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		p := s.PlacePrediction
		if p == nil {
			continue
		}
		out = append(out, suggestion{
			PlaceID:   p.PlaceID,
			Text:      p.Text.Text,
			Main:      p.StructuredFormat.MainText.Text,
			Secondary: p.StructuredFormat.SecondaryText.Text,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
