// Package httpx holds the JSON request and response helpers shared by the
// public API and the admin routes.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/AIMultiverse/internal/auth"
	"github.com/digkill/AIMultiverse/internal/service"
)

// MaxBodyBytes bounds request bodies. Media arrives base64 encoded inside JSON.
const MaxBodyBytes = 64 << 20

type ErrorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}

func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", service.ErrInvalidInput, err)
	}
	return nil
}

// Status maps a service error to its HTTP status and client-facing message.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusUnauthorized, "session expired, please sign in again"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrInsufficientCredits):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, service.ErrAccountBanned),
		errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrAIUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, service.ErrVendor):
		return http.StatusBadGateway, service.ErrVendor.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// WriteError answers with the mapped status. Unmapped errors are logged.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := Status(err)
	if status == http.StatusInternalServerError {
		log.Error("handler error", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	WriteMessage(w, status, msg)
}
