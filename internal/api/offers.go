package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/offer"
)

func (h *handler) submitOffer(w http.ResponseWriter, r *http.Request) {
	var req offer.SubmitRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Offers.Submit(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *handler) listOffers(w http.ResponseWriter, r *http.Request) {
	out, err := h.Offers.List(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) respondOffer(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Offers.Respond(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), model.OfferStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handler) withdrawOffer(w http.ResponseWriter, r *http.Request) {
	o, err := h.Offers.Withdraw(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
