package review

import "vinylstore-be/internal/apperr"

var (
	ErrInvalidRating   = apperr.New(apperr.KindValidation, "rating must be between 1 and 5")
	ErrCommentTooLong  = apperr.New(apperr.KindValidation, "comment is too long")
	ErrProductNotFound = apperr.New(apperr.KindNotFound, "product not found")
)
