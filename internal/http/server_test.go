package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"digitalstore/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestRespondServiceError(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", services.ErrNotFound), http.StatusNotFound},
		{"invalid request", services.ErrInvalidRequest, http.StatusBadRequest},
		{"no valid products", services.ErrNoValidProducts, http.StatusBadRequest},
		{"invalid metadata", services.ErrInvalidMetadata, http.StatusBadRequest},
		{"duplicate", services.ErrDuplicateRequest, http.StatusConflict},
		{"email taken", services.ErrEmailAlreadyExists, http.StatusConflict},
		{"already owned", &services.AlreadyOwnedError{ProductNames: []string{"Course A"}}, http.StatusConflict},
		{"stripe unconfigured", services.ErrStripeNotConfigured, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.respondServiceError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRespondDenied(t *testing.T) {
	rec := httptest.NewRecorder()
	respondDenied(rec, "expired", "your access to this product has expired")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"your access to this product has expired","reason":"expired"}`, rec.Body.String())
}
