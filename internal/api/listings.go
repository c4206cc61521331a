package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/listing"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/validate"
)

// listingFilter parses search query parameters. Visitors only see public
// listings; mine=true lists the caller's own listings in any status.
func listingFilter(r *http.Request) (model.ListingFilter, error) {
	q := r.URL.Query()
	f := model.ListingFilter{
		City:    q.Get("city"),
		ZipCode: q.Get("zip"),
	}

	floatParam := func(name string, dst *float64) error {
		if s := q.Get(name); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || v < 0 {
				return validate.Field(name, "must be a non-negative number")
			}
			*dst = v
		}
		return nil
	}
	intParam := func(name string, dst *int) error {
		if s := q.Get(name); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 0 {
				return validate.Field(name, "must be a non-negative integer")
			}
			*dst = v
		}
		return nil
	}
	for _, err := range []error{
		floatParam("min_price", &f.MinPrice),
		floatParam("max_price", &f.MaxPrice),
		intParam("min_beds", &f.MinBeds),
		intParam("limit", &f.Limit),
		intParam("offset", &f.Offset),
	} {
		if err != nil {
			return f, err
		}
	}

	status := model.ListingStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		return f, eris.Wrapf(model.ErrInvalidStatus, "%q", status)
	}

	if q.Get("mine") == "true" {
		user := UserID(r.Context())
		if user == "" {
			return f, eris.Wrap(model.ErrForbidden, "sign in to list your own listings")
		}
		f.SellerID = user
		f.Status = status
		return f, nil
	}

	if status == "" {
		status = model.ListingStatusActive
	}
	if !(&model.Listing{Status: status}).Public() {
		return f, validate.Field("status", "must be one of: active, under_contract, sold")
	}
	f.Status = status
	return f, nil
}

func (h *handler) searchListings(w http.ResponseWriter, r *http.Request) {
	f, err := listingFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Listings.Search(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.Listings.View(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// visible loads a listing the caller may see without counting a view.
func (h *handler) visible(r *http.Request) (*model.Listing, error) {
	id := chi.URLParam(r, "id")
	l, err := h.Listings.Get(r.Context(), id, false)
	if err != nil {
		return nil, err
	}
	if !l.Public() && l.SellerID != UserID(r.Context()) {
		return nil, eris.Wrapf(model.ErrNotFound, "listing %s", id)
	}
	return l, nil
}

func (h *handler) createListing(w http.ResponseWriter, r *http.Request) {
	var patch model.ListingPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Listings.Create(r.Context(), UserID(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *handler) updateListing(w http.ResponseWriter, r *http.Request) {
	var patch model.ListingPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Listings.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *handler) deleteListing(w http.ResponseWriter, r *http.Request) {
	if err := h.Listings.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) checkStep(w http.ResponseWriter, r *http.Request) {
	step, err := listing.ParseStep(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Listings.CheckStep(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), step); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"step": step, "valid": true})
}

func (h *handler) submitListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.Listings.Submit(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *handler) transitionListing(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to := model.ListingStatus(req.Status)
	if !to.Valid() {
		writeError(w, r, eris.Wrapf(model.ErrInvalidStatus, "%q", req.Status))
		return
	}
	l, err := h.Listings.Transition(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *handler) saveListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.visible(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Listings.Save(r.Context(), l.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) valueListing(w http.ResponseWriter, r *http.Request) {
	if h.Valuations == nil {
		writeError(w, r, errNotConfigured)
		return
	}
	l, err := h.Listings.Owned(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Valuations.Value(r.Context(), l.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) listComparables(w http.ResponseWriter, r *http.Request) {
	l, err := h.visible(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	comps, err := h.Store.ListComparables(r.Context(), l.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if comps == nil {
		comps = []model.ComparableSale{}
	}
	writeJSON(w, http.StatusOK, comps)
}

func (h *handler) draftDescription(w http.ResponseWriter, r *http.Request) {
	if h.Drafter == nil {
		writeError(w, r, errNotConfigured)
		return
	}
	l, err := h.Listings.Owned(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Store.LatestValuation(r.Context(), l.ID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		v = nil
	}
	d, err := h.Drafter.Draft(r.Context(), l, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) neighborhood(w http.ResponseWriter, r *http.Request) {
	if h.Neighborhoods == nil {
		writeError(w, r, errNotConfigured)
		return
	}
	l, err := h.visible(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Neighborhoods.ForListing(r.Context(), l)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
