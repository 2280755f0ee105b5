package product

import "vinylstore-be/internal/apperr"

var (
	// -- Validation & Input --
	ErrInvalidName       = apperr.New(apperr.KindValidation, "product name is required")
	ErrInvalidPrice      = apperr.New(apperr.KindValidation, "price must not be negative")
	ErrInvalidStock      = apperr.New(apperr.KindValidation, "stock quantity must not be negative")
	ErrInvalidPriceRange = apperr.New(apperr.KindValidation, "min price must not exceed max price")

	// -- Resource State --
	ErrProductNotFound = apperr.New(apperr.KindNotFound, "product not found")
	ErrStoreNotFound   = apperr.New(apperr.KindNotFound, "store not found")

	// -- Ownership --
	ErrNotStoreOwner = apperr.New(apperr.KindForbidden, "product belongs to another store")
)
