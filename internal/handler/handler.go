package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"vinylstore-be/internal/apperr"
	"vinylstore-be/internal/cart"
	"vinylstore-be/internal/clickhistory"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/media"
	"vinylstore-be/internal/order"
	"vinylstore-be/internal/product"
	"vinylstore-be/internal/promotion"
	"vinylstore-be/internal/review"
	"vinylstore-be/internal/utils"
	"vinylstore-be/internal/wishlist"
)

const maxJSONBody = 1 << 20

var (
	ErrInvalidID    = apperr.New(apperr.KindValidation, "invalid id")
	ErrInvalidBody  = apperr.New(apperr.KindValidation, "invalid request body")
	ErrInvalidQuery = apperr.New(apperr.KindValidation, "invalid query parameter")
)

// Services are the core operations the HTTP API exposes.
type Services struct {
	Products   product.Service
	Promotions promotion.Service
	Media      media.Service
	Carts      cart.Service
	Orders     order.Service
	Wishlist   wishlist.Service
	Reviews    review.Service
	Clicks     clickhistory.Service
}

type Handler struct {
	svc Services
}

func New(svc Services) *Handler {
	return &Handler{svc: svc}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// Catalog
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/{id}", h.getProduct)
	mux.HandleFunc("GET /products/{id}/reviews", h.listReviews)
	mux.HandleFunc("PUT /products/{id}/review", h.upsertReview)

	// Vendor
	mux.HandleFunc("GET /vendor/dashboard", h.dashboard)
	mux.HandleFunc("POST /vendor/products", h.createProduct)
	mux.HandleFunc("PATCH /vendor/products/{id}", h.updateProduct)
	mux.HandleFunc("POST /vendor/products/{id}/promotions", h.addPromotion)
	mux.HandleFunc("DELETE /vendor/promotions/{id}", h.deletePromotion)
	mux.HandleFunc("POST /vendor/promotions/{id}/toggle", h.togglePromotion)
	mux.HandleFunc("POST /vendor/products/{id}/media", h.uploadMedia)
	mux.HandleFunc("POST /vendor/media/{id}/primary", h.setPrimaryMedia)
	mux.HandleFunc("DELETE /vendor/media/{id}", h.deleteMedia)
	mux.HandleFunc("GET /vendor/order-items", h.listVendorItems)
	mux.HandleFunc("POST /vendor/order-items/{id}/status", h.advanceItemStatus)

	// Customer
	mux.HandleFunc("GET /cart", h.getCart)
	mux.HandleFunc("POST /cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("POST /checkout", h.checkout)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("GET /wishlist", h.listWishlist)
	mux.HandleFunc("POST /wishlist/{productID}/toggle", h.toggleWishlist)
	mux.HandleFunc("GET /history", h.listHistory)
}

// who returns the caller, or the zero Identity for anonymous requests.
func who(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrInvalidQuery
	}
	return n, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return ErrInvalidBody
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	utils.WriteAppError(w, err)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	utils.WriteJSON(w, code, body)
}
