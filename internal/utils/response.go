package utils

import (
	"encoding/json"
	"net/http"

	"vinylstore-be/internal/apperr"
)

func WriteJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]string{"error": message})
}

// WriteAppError maps err onto its HTTP status. Internal errors never leak
// their message.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)

	message := err.Error()
	if kind == apperr.KindInternal {
		message = http.StatusText(http.StatusInternalServerError)
	}

	WriteJSON(w, code, map[string]string{
		"error": message,
		"kind":  string(kind),
	})
}
