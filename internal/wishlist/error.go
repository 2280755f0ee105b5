package wishlist

import "vinylstore-be/internal/apperr"

var ErrProductNotFound = apperr.New(apperr.KindNotFound, "product not found")
