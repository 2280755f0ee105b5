package order

import "vinylstore-be/internal/apperr"

var (
	// -- Validation & Input --
	ErrInvalidAddress   = apperr.New(apperr.KindValidation, "shipping address is required")
	ErrInvalidStatus    = apperr.New(apperr.KindValidation, "invalid order status")
	ErrReasonRequired   = apperr.New(apperr.KindValidation, "a cancellation reason is required")
	ErrInvalidReason    = apperr.New(apperr.KindValidation, "invalid cancellation reason")
	ErrReasonNotAllowed = apperr.New(apperr.KindValidation, "only cancellations carry a reason")

	// -- Checkout --
	ErrEmptyCart         = apperr.New(apperr.KindEmptyCart, "cart is empty")
	ErrInsufficientStock = apperr.New(apperr.KindInsufficientStock, "insufficient stock")
	ErrCheckoutFailed    = apperr.New(apperr.KindCheckoutFailed, "checkout failed, please retry")
	ErrPriceChanged      = apperr.New(apperr.KindCheckoutFailed, "prices changed during checkout, please review your cart")
	ErrProductWithdrawn  = apperr.New(apperr.KindCheckoutFailed, "a product in the cart is no longer available")

	// -- Status machine --
	ErrInvalidTransition = apperr.New(apperr.KindInvalidTransition, "order item is already completed or cancelled")

	// -- Resource State --
	ErrOrderNotFound     = apperr.New(apperr.KindNotFound, "order not found")
	ErrOrderItemNotFound = apperr.New(apperr.KindNotFound, "order item not found")

	// -- Ownership --
	ErrNotOrderOwner = apperr.New(apperr.KindForbidden, "order belongs to another customer")
	ErrNotItemVendor = apperr.New(apperr.KindForbidden, "order item belongs to another store")
)
