package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

const maxBody = 1 << 20

func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func HttpError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// FieldError reports a validation failure on a named request field.
func FieldError(w http.ResponseWriter, field, msg string) {
	WriteJSON(w, http.StatusBadRequest, map[string]string{"error": msg, "field": field})
}

// QueryInt reads a positive integer query parameter, falling back to def.
func QueryInt(r *http.Request, name string, def int) int {
	q := r.URL.Query().Get(name)
	if q == "" {
		return def
	}
	v, err := strconv.Atoi(q)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
