package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/fsbo/internal/listing"
	"github.com/sells-group/fsbo/internal/model"
)

func (h *handler) requestShowing(w http.ResponseWriter, r *http.Request) {
	var in listing.ShowingRequestInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Listings.RequestShowing(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *handler) listShowings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Listings.Showings(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) respondShowing(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Listings.RespondShowing(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), model.ShowingStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handler) cancelShowing(w http.ResponseWriter, r *http.Request) {
	s, err := h.Listings.CancelShowing(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
