package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/audit"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/auth"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/identity"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/ratelimit"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type staticResolver map[string]*domain.Identity

func (s staticResolver) Resolve(_ context.Context, email string) (*domain.Identity, error) {
	if id, ok := s[email]; ok {
		return id, nil
	}
	return nil, domain.Unauthenticated("could not validate credentials")
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := identity.FromContext(r.Context()); id != nil {
			w.Write([]byte(id.UserID))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", "deliveryhub", 7)
	resolver := staticResolver{"ann@example.com": {UserID: "u-ann", OrganizationID: "org"}}
	h := JWTMiddleware(tm, resolver, discard)(echoIdentity())

	t.Run("public path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anonymous", rec.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sources", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invite needs token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/inviteUser", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		tok, err := tm.GenerateToken("ann@example.com", "u-ann", "org", "admin")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/sources", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u-ann", rec.Body.String())
	})

	t.Run("unknown subject", func(t *testing.T) {
		tok, err := tm.GenerateToken("gone@example.com", "u-x", "org", "admin")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/sources", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimitMiddleware_PerOrganization(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter, discard)(echoIdentity())

	call := func(org string) int {
		req := httptest.NewRequest(http.MethodGet, "/sources", nil)
		req = req.WithContext(identity.WithIdentity(req.Context(), &domain.Identity{UserID: "u", OrganizationID: org}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("org-a"))
	assert.Equal(t, http.StatusTooManyRequests, call("org-a"))
	assert.Equal(t, http.StatusOK, call("org-b"))
}

func TestAuditMiddleware_RecordsMutations(t *testing.T) {
	var buf bytes.Buffer
	auditLog := audit.NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	h := AuditMiddleware(auditLog)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/destinations/d-1", nil)
	req = req.WithContext(identity.WithIdentity(req.Context(), &domain.Identity{UserID: "u", OrganizationID: "org"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "delete", rec["action"])
	assert.Equal(t, "destinations", rec["resource"])
	assert.Equal(t, "d-1", rec["resource_id"])
	assert.Equal(t, "org", rec["organization_id"])

	buf.Reset()
	get := httptest.NewRequest(http.MethodGet, "/destinations", nil)
	get = get.WithContext(identity.WithIdentity(get.Context(), &domain.Identity{UserID: "u"}))
	h.ServeHTTP(httptest.NewRecorder(), get)
	assert.Zero(t, buf.Len())
}

func TestValidateJSONContentType(t *testing.T) {
	h := ValidateJSONContentType(discard)(echoIdentity())

	req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/sources/1", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSanitizeInputs(t *testing.T) {
	h := SanitizeInputs(discard)(echoIdentity())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sources?q=%3Cscript%3E", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"https://hub.example.com"})(echoIdentity())
	req := httptest.NewRequest(http.MethodOptions, "/sources", nil)
	req.Header.Set("Origin", "https://hub.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://hub.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
