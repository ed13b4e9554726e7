package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          domain.Validation("cloud", "bad"),
		http.StatusNotFound:            fmt.Errorf("load: %w", domain.NotFound("source not found")),
		http.StatusConflict:            domain.Conflict("dup"),
		http.StatusUnauthorized:        domain.Unauthenticated("no"),
		http.StatusForbidden:           domain.Forbidden("no"),
		http.StatusInternalServerError: errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestError_ValidationBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodPost, "/sources", nil), nil, domain.Validation("product", "invalid product"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Error.Kind)
	assert.Equal(t, "product", body.Error.Field)
	assert.Equal(t, "invalid product", body.Error.Message)
}

func TestError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/sources", nil), nil, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}
