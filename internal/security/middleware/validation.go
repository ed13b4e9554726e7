package middleware

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/aryan0dhankhar/deliveryhub/internal/respond"
)

// ValidateJSONContentType rejects POST/PUT/PATCH bodies that are not application/json
func ValidateJSONContentType(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType != "application/json" {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", r.Header.Get("Content-Type")),
					slog.String("method", r.Method),
				)
				respond.JSON(w, http.StatusUnsupportedMediaType, respond.ErrorBody{Error: respond.ErrorDetail{
					Kind:    "unsupported_media_type",
					Message: "Content-Type must be application/json",
				}})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SanitizeInputs rejects markup characters in query parameters and traversal patterns in the path
func SanitizeInputs(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for key, values := range r.URL.Query() {
				for _, val := range values {
					if strings.ContainsAny(val, `<>"'&`) {
						log.Warn("suspicious input detected",
							slog.String("path", r.URL.Path),
							slog.String("param", key),
						)
						badRequest(w, "invalid input: dangerous characters detected")
						return
					}
				}
			}

			if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.Path, "//") {
				log.Warn("suspicious path pattern detected", slog.String("path", r.URL.Path))
				badRequest(w, "invalid path")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	respond.JSON(w, http.StatusBadRequest, respond.ErrorBody{Error: respond.ErrorDetail{
		Kind:    "bad_request",
		Message: msg,
	}})
}
