package cart

import "vinylstore-be/internal/apperr"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = apperr.New(apperr.KindValidation, "invalid cart quantity")

	// -- Resource State --
	ErrCartItemNotFound  = apperr.New(apperr.KindNotFound, "cart item not found")
	ErrProductNotFound   = apperr.New(apperr.KindNotFound, "product not found")
	ErrInsufficientStock = apperr.New(apperr.KindInsufficientStock, "insufficient stock")

	// -- Ownership --
	ErrNotCartOwner = apperr.New(apperr.KindForbidden, "cart item belongs to another customer")
)
