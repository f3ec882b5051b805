package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/auth"
	"github.com/digkill/AIMultiverse/internal/service"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrAccountNotFound, http.StatusUnauthorized},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInsufficientCredits, http.StatusPaymentRequired},
		{service.ErrAccountBanned, http.StatusForbidden},
		{service.ErrPermissionDenied, http.StatusForbidden},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: file", service.ErrNotFound), http.StatusNotFound},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrConcurrentUpdate, http.StatusConflict},
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrAIUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: chat: boom", service.ErrVendor), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := Status(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestStatusHidesVendorAndInternalDetail(t *testing.T) {
	_, msg := Status(fmt.Errorf("%w: chat: key=secret", service.ErrVendor))
	assert.Equal(t, service.ErrVendor.Error(), msg)

	_, msg = Status(errors.New("sql: connection refused"))
	assert.Equal(t, "internal error", msg)
}

func TestWriteError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest("GET", "/", nil), log, service.ErrInsufficientCredits)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, service.ErrInsufficientCredits.Error(), body.Error)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
		Data []byte `json:"data"`
	}
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","data":"aGk="}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &v))
	assert.Equal(t, "a", v.Name)
	assert.Equal(t, []byte("hi"), v.Data)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	err := DecodeJSON(httptest.NewRecorder(), r, &v)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
