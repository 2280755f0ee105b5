package handler

import (
	"net/http"

	"vinylstore-be/internal/review"
	"vinylstore-be/internal/wishlist"
)

type toggleResponse struct {
	Action wishlist.Action `json:"action"`
}

type reviewResponse struct {
	Review  *review.Review `json:"review"`
	Created bool           `json:"created"`
}

func (h *Handler) listWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Wishlist.List(r.Context(), who(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, err)
		return
	}

	action, err := h.svc.Wishlist.Toggle(r.Context(), who(r), productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Action: action})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	reviews, err := h.svc.Reviews.ListByProduct(r.Context(), productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) upsertReview(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var input review.UpsertInput
	if err := decode(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	rv, created, err := h.svc.Reviews.Upsert(r.Context(), who(r), productID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, reviewResponse{Review: rv, Created: created})
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	clicks, err := h.svc.Clicks.List(r.Context(), who(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clicks)
}
