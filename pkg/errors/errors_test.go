package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestErrorTypesMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		check  func(error) bool
	}{
		{"validation", NewValidationError("bad"), http.StatusBadRequest, IsValidation},
		{"not found", NewNotFoundError("thought"), http.StatusNotFound, IsNotFound},
		{"conflict", NewConflictError("dup"), http.StatusConflict, IsConflict},
		{"invalid state", NewInvalidStateError("note"), http.StatusUnprocessableEntity, IsInvalidState},
		{"internal", NewInternalError("boom"), http.StatusInternalServerError, IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			wrapped := fmt.Errorf("command handler failed: %w", tt.err)
			assert.True(t, tt.check(wrapped))
		})
	}
}

func TestWrapKeepsTypeWithoutMutatingOriginal(t *testing.T) {
	orig := NewNotFoundError("project")

	err := Wrap(orig, "create note")

	assert.True(t, IsNotFound(err))
	assert.Equal(t, "create note: project not found", GetAppError(err).Message)
	assert.Equal(t, "project not found", orig.Message)
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	err := Wrap(fmt.Errorf("disk on fire"), "save poi")

	require.NotNil(t, GetAppError(err))
	assert.True(t, IsInternal(err))
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestErrorHandlerHidesInternalDetails(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", nil)

	h.Handle(rec, req, NewDatabaseError("put", fmt.Errorf("throttled")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(ErrorTypeInternal), body.Type)
	assert.Equal(t, "An internal error occurred", body.Message)
}

func TestErrorHandlerReportsConflict(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", nil)

	h.Handle(rec, req, fmt.Errorf("wrapped: %w", NewConflictError("project already exists")))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body.Type)
	assert.Equal(t, "project already exists", body.Message)
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	handler := h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("index corrupted")
	}))

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
