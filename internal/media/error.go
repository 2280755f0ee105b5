package media

import "vinylstore-be/internal/apperr"

var (
	ErrEmptyUpload     = apperr.New(apperr.KindValidation, "upload is empty")
	ErrUploadTooLarge  = apperr.New(apperr.KindValidation, "upload is too large")
	ErrUnsupportedType = apperr.New(apperr.KindValidation, "only image and video uploads are supported")

	ErrMediaNotFound = apperr.New(apperr.KindNotFound, "media not found")
)
