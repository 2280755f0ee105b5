package promotion

import "vinylstore-be/internal/apperr"

var (
	ErrInvalidRate      = apperr.New(apperr.KindValidation, "discount rate must be between 0 and 100")
	ErrInvalidWindow    = apperr.New(apperr.KindValidation, "start time must not be after end time")
	ErrInvalidStatus    = apperr.New(apperr.KindValidation, "invalid promotion status")
	ErrPromotionExpired = apperr.New(apperr.KindValidation, "expired promotions cannot be toggled")

	ErrPromotionNotFound = apperr.New(apperr.KindNotFound, "promotion not found")
)
