package handler

import (
	"net/http"

	"vinylstore-be/internal/order"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.Orders.Checkout(r.Context(), who(r), req.ShippingAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListOrders(r.Context(), who(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.Orders.GetOrder(r.Context(), who(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) listVendorItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Orders.ListVendorItems(r.Context(), who(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) advanceItemStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	change, err := order.NewStatusChange(order.Status(req.Status), order.CancelReason(req.Reason))
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.svc.Orders.AdvanceItemStatus(r.Context(), who(r), id, change)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
