package handler

import "net/http"

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Carts.Snapshot(r.Context(), who(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProductID <= 0 {
		writeError(w, ErrInvalidID)
		return
	}

	item, err := h.svc.Carts.AddItem(r.Context(), who(r), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req cartItemRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.svc.Carts.UpdateItem(r.Context(), who(r), id, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Carts.RemoveItem(r.Context(), who(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
