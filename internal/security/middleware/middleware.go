// Package middleware holds the HTTP chain: CORS, authentication, rate limiting, audit and input checks.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/internal/respond"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/audit"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/auth"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/identity"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/ratelimit"
)

// publicPaths are served without a bearer token
var publicPaths = map[string]bool{
	"/healthz":            true,
	"/readyz":             true,
	"/metrics":            true,
	"/auth/signup":        true,
	"/auth/set-password":  true,
	"/auth/login":         true,
	"/auth/userSignup":    true,
	"/auth/resetPassword": true,
}

// IsPublic reports whether r may skip authentication
func IsPublic(r *http.Request) bool {
	return r.Method == http.MethodOptions || publicPaths[r.URL.Path]
}

// Resolver maps a token subject to the caller
type Resolver interface {
	Resolve(ctx context.Context, email string) (*domain.Identity, error)
}

// JWTMiddleware verifies the bearer token and places the caller's identity in the request context
func JWTMiddleware(tm *auth.TokenManager, resolver Resolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond.Error(w, r, log, domain.Unauthenticated("missing authorization header"))
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				respond.Error(w, r, log, domain.Unauthenticated("invalid authorization header"))
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("error", err.Error()))
				respond.Error(w, r, log, domain.Unauthenticated("could not validate credentials"))
				return
			}

			id, err := resolver.Resolve(r.Context(), claims.Subject)
			if err != nil {
				respond.Error(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// RateLimitMiddleware limits authenticated traffic per organization and
// unauthenticated /auth/ traffic per client address
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := true
			if id := identity.FromContext(r.Context()); id != nil {
				allowed = limiter.Allow(id.OrganizationID)
			} else if strings.HasPrefix(r.URL.Path, "/auth/") {
				allowed = limiter.AllowStrict(clientIP(r), 20, time.Minute)
			}

			if !allowed {
				log.Warn("rate limit exceeded", slog.String("path", r.URL.Path))
				respond.JSON(w, http.StatusTooManyRequests, respond.ErrorBody{Error: respond.ErrorDetail{
					Kind:    "rate_limited",
					Message: "rate limit exceeded",
				}})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records every authenticated mutation together with its outcome
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity.FromContext(r.Context())
			if id == nil || r.Method == http.MethodGet || r.Method == http.MethodOptions || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			resource, resourceID := splitResource(r.URL.Path)
			status := "success"
			if rec.status >= 400 {
				status = "failed"
			}
			if rec.status == http.StatusForbidden {
				auditLog.LogDenied(r.Context(), id.OrganizationID, id.UserID, r.Method+" "+r.URL.Path)
				return
			}
			auditLog.Log(r.Context(), audit.Entry{
				OrganizationID: id.OrganizationID,
				UserID:         id.UserID,
				Action:         strings.ToLower(r.Method),
				Resource:       resource,
				ResourceID:     resourceID,
				Status:         status,
				Details:        http.StatusText(rec.status),
			})
		})
	}
}

// CORS answers preflight requests and sets allow headers for configured origins
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowedOrigins) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// splitResource turns /sources/abc into ("sources", "abc")
func splitResource(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	resource := parts[0]
	if len(parts) > 1 {
		return resource, parts[1]
	}
	return resource, ""
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
