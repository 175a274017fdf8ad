package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blindcellar/tasting-system/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"event not found", services.ErrEventNotFound, http.StatusNotFound},
		{"invalid join code", services.ErrInvalidJoinCode, http.StatusNotFound},
		{"event full", services.ErrEventFull, http.StatusConflict},
		{"already started", services.ErrEventAlreadyStarted, http.StatusConflict},
		{"invalid category", services.ErrInvalidCategory, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("outer: %w", services.ErrValidationFailed), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			mapServiceErrorToHTTP(rec, req, tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"Anna"}`, ""},
		{"empty body", ``, "body must not be empty"},
		{"malformed", `{"name":`, "badly-formed JSON"},
		{"unknown field", `{"nickname":"Anna"}`, "unknown key"},
		{"trailing value", `{"name":"Anna"}{"name":"Boris"}`, "single JSON value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst payload
			err := readJSON(rec, req, &dst)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Anna", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
