package httpio

import (
	"encoding/json"
	"io"
	"net/http"
)

func Decode(r io.Reader, data any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(&data)
}

func WriteJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func ErrorResponse(w http.ResponseWriter, code int, msg string) error {
	return WriteJSON(w, code, map[string]string{
		"error": msg,
	})
}

func BadRequestResponse(w http.ResponseWriter, msg string) error {
	return ErrorResponse(w, http.StatusBadRequest, msg)
}

func UnauthorizedResponse(w http.ResponseWriter, msg string) error {
	return ErrorResponse(w, http.StatusUnauthorized, msg)
}

func ForbiddenResponse(w http.ResponseWriter, msg string) error {
	return ErrorResponse(w, http.StatusForbidden, msg)
}

func NotFoundResponse(w http.ResponseWriter) error {
	return ErrorResponse(w, http.StatusNotFound, "Not found")
}

func InternalServerErrorResponse(w http.ResponseWriter, msg string) error {
	return ErrorResponse(w, http.StatusInternalServerError, msg)
}

func FailedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) error {
	return WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "failed validation",
		"details": errors,
	})
}
