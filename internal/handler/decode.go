package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON document from the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.Validation("body", "request body too large")
		case errors.Is(err, io.EOF):
			return domain.Validation("body", "request body is empty")
		default:
			return domain.Validation("body", "invalid JSON body: %s", err.Error())
		}
	}
	return nil
}
