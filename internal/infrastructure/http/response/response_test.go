package response_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/tasklens/internal/domain"
	"github.com/rezkam/tasklens/internal/infrastructure/http/response"
)

// unencodableType fails during JSON encoding.
type unencodableType struct{}

func (unencodableType) MarshalJSON() ([]byte, error) {
	return nil, errors.New("cannot encode")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body must be valid JSON: %s", w.Body.String())
	return body
}

func TestOK_EncodingFailure_Returns500WithErrorJSON(t *testing.T) {
	for name, send := range map[string]func(http.ResponseWriter, any){
		"ok":      response.OK,
		"created": response.Created,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			send(w, unencodableType{})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			body := decodeError(t, w)
			assert.Equal(t, response.CodeInternalError, body.Error.Code)
			assert.Equal(t, "failed to encode response", body.Error.Message)
		})
	}
}

func TestOK_Success_ReturnsValidJSON(t *testing.T) {
	w := httptest.NewRecorder()
	response.OK(w, map[string]any{"id": "123", "items": []string{"a", "b"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"123","items":["a","b"]}`, w.Body.String())
}

func TestCreated_Success(t *testing.T) {
	w := httptest.NewRecorder()
	response.Created(w, map[string]string{"id": "new"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"new"}`, w.Body.String())
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	response.NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestError_DetailsAlwaysArray(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, "INVALID_INPUT", "missing required field", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"error":{"code":"INVALID_INPUT","message":"missing required field","details":[]}}`,
		w.Body.String())
}

func TestFromDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{"title required", domain.ErrTitleRequired, http.StatusBadRequest, response.CodeValidationError, "title"},
		{"title too long", fmt.Errorf("create: %w", domain.ErrTitleTooLong), http.StatusBadRequest, response.CodeValidationError, "title"},
		{"priority", domain.ErrInvalidTaskPriority, http.StatusBadRequest, response.CodeValidationError, "priority"},
		{"status", domain.ErrInvalidStatusFilter, http.StatusBadRequest, response.CodeValidationError, "status"},
		{"generic validation", fmt.Errorf("%w: bad due date", domain.ErrValidation), http.StatusBadRequest, response.CodeValidationError, ""},
		{"task not found", fmt.Errorf("failed to get: %w", domain.ErrTaskNotFound), http.StatusNotFound, response.CodeNotFound, ""},
		{"suggestion not found", domain.ErrSuggestionNotFound, http.StatusNotFound, response.CodeNotFound, ""},
		{"service error", domain.ErrGeneratorUnavailable, http.StatusInternalServerError, response.CodeInternalError, ""},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, response.CodeInternalError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			response.FromDomainError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotNil(t, body.Error.Details)
			if tt.wantField != "" {
				require.Len(t, body.Error.Details, 1)
				assert.Equal(t, tt.wantField, body.Error.Details[0].Field)
			}
		})
	}
}

func TestInternalError_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	response.InternalError(w, r, errors.New("password=hunter2"))

	assert.NotContains(t, w.Body.String(), "hunter2")
}
