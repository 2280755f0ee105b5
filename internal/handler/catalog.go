package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/media"
	"vinylstore-be/internal/product"
	"vinylstore-be/internal/promotion"
	"vinylstore-be/internal/review"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// productDetail is the product page: the priced listing plus everything
// shown around it.
type productDetail struct {
	product.Listing
	Media      []media.Media   `json:"media"`
	Reviews    []review.Review `json:"reviews"`
	Rating     review.Summary  `json:"rating"`
	InWishlist bool            `json:"in_wishlist"`
}

func parseListFilter(r *http.Request) (product.ListFilter, error) {
	q := r.URL.Query()
	f := product.ListFilter{Search: strings.TrimSpace(q.Get("q"))}

	if raw := q.Get("store_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, ErrInvalidQuery
		}
		f.StoreID = &id
	}

	var err error
	if f.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, ErrInvalidQuery
	}
	return &d, nil
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	listings, err := h.svc.Products.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := who(r)

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.svc.Products.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	detail := productDetail{Listing: *listing}

	if detail.Media, err = h.svc.Media.List(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	if detail.Reviews, err = h.svc.Reviews.ListByProduct(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.svc.Reviews.Summary(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	detail.Rating = *summary

	if detail.InWishlist, err = h.svc.Wishlist.Contains(ctx, caller, id); err != nil {
		logger.FromCtx(ctx).Warn("wishlist lookup failed", zap.Int64("product_id", id), zap.Error(err))
		detail.InWishlist = false
	}

	h.svc.Clicks.Record(ctx, caller, id)

	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Products.Dashboard(r.Context(), who(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var input product.CreateInput
	if err := decode(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.svc.Products.Create(r.Context(), who(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var input product.UpdateInput
	if err := decode(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.svc.Products.Update(r.Context(), who(r), id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) addPromotion(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var input promotion.CreateInput
	if err := decode(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.svc.Promotions.Add(r.Context(), who(r), productID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) deletePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Promotions.Delete(r.Context(), who(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) togglePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.svc.Promotions.Toggle(r.Context(), who(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) uploadMedia(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadBytes+maxJSONBody)
	if err := r.ParseMultipartForm(media.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, media.ErrUploadTooLarge)
			return
		}
		writeError(w, ErrInvalidBody)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, media.ErrEmptyUpload)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, media.MaxUploadBytes+1))
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.svc.Media.Upload(r.Context(), who(r), productID, media.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		IsPrimary:   r.FormValue("is_primary") == "true",
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) setPrimaryMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Media.SetPrimary(r.Context(), who(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Media.Delete(r.Context(), who(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
