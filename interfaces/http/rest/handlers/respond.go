// Package handlers maps HTTP requests onto the command and query buses.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"kaku/pkg/auth"
	pkgerrors "kaku/pkg/errors"
	"kaku/pkg/utils"
)

const maxBodyBytes = 1 << 20

// ListResponse wraps collections so the payload can grow fields later
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// CreatedResponse is returned by every create endpoint
type CreatedResponse struct {
	ID   string `json:"id"`
	Slug string `json:"slug,omitempty"`
}

type base struct {
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// decode reads a JSON body into dst and validates it
func (b base) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.NewValidationError("request body is empty")
		}
		return pkgerrors.NewValidationError("invalid request body: " + err.Error())
	}
	return utils.ValidateStruct(dst)
}

func (b base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (b base) respondError(w http.ResponseWriter, r *http.Request, err error) {
	b.errors.Handle(w, r, err)
}

// scribeOf prefers the explicit id and falls back to the token subject
func scribeOf(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.ScribeID
	}
	return ""
}

func items[T any](in []T) ListResponse[T] {
	if in == nil {
		in = []T{}
	}
	return ListResponse[T]{Items: in}
}
