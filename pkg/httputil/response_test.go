package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/critique/pkg/apperrors"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "success"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, errors.New("test error"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"test error"}`, w.Body.String())
}

func TestWriteNotFoundError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNotFoundError(w, "not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestWriteInternalError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalError(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteCreated(w, map[string]int{"id": 123})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "123")
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestWriteServiceError(t *testing.T) {
	ve := apperrors.NewValidationError("score", "Ensure this value is less than or equal to 10.")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"field validation", ve, http.StatusBadRequest, `"score":["Ensure this value is less than or equal to 10."]`},
		{"plain validation", fmt.Errorf("%w: bad json", apperrors.ErrValidation), http.StatusBadRequest, "bad json"},
		{"unauthenticated", apperrors.ErrUnauthenticated, http.StatusUnauthorized, "authentication required"},
		{"forbidden", apperrors.Forbidden("not the author"), http.StatusForbidden, "not the author"},
		{"not found", apperrors.NotFound("title", 9), http.StatusNotFound, "title 9"},
		{"conflict", apperrors.Conflict("review already exists"), http.StatusConflict, "review already exists"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/titles", nil)

			WriteServiceError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}

	t.Run("internal cause is not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		WriteServiceError(w, r, errors.New("password=hunter2"))

		assert.NotContains(t, w.Body.String(), "hunter2")
	})

	t.Run("details decode", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", nil)

		combined := &apperrors.ValidationError{}
		combined.Add("username", "This field is required.")
		combined.Add("email", "Enter a valid email address.")
		WriteServiceError(w, r, combined)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "validation failed", resp.Error)
		assert.Len(t, resp.Details, 2)
		assert.Equal(t, []string{"This field is required."}, resp.Details["username"])
	})
}
