package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/observability"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code vgaerrors.Code
		want int
	}{
		{vgaerrors.ErrCodeRequiredArgument, http.StatusBadRequest},
		{vgaerrors.ErrCodePointOutsideRegion, http.StatusBadRequest},
		{vgaerrors.ErrCodeDuplicateColumn, http.StatusConflict},
		{vgaerrors.ErrCodeRunNotFound, http.StatusNotFound},
		{vgaerrors.ErrCodeCancelled, http.StatusRequestTimeout},
		{vgaerrors.ErrCodeUnsupported, http.StatusNotImplemented},
		{vgaerrors.ErrCodeStorage, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.code), "code %q", tt.code)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("coded", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := fmt.Errorf("invalid options: %w", vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "Invalid step type: x"))
		WriteError(rec, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrorBody{Error: "Invalid step type: x", Code: vgaerrors.ErrCodeInvalidArgument}, decodeError(t, rec))
	})

	t.Run("uncoded hides text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("dial tcp 10.0.0.1: refused"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error", decodeError(t, rec).Error)
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	decode := func(body string) (payload, error) {
		var p payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := DecodeJSON(httptest.NewRecorder(), req, &p)
		return p, err
	}

	p, err := decode(`{"name":"a"}`)
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name)

	for _, body := range []string{`{"name":`, `{"other":1}`, `{"name":"a"} {}`, ``} {
		_, err := decode(body)
		assert.Equal(t, vgaerrors.ErrCodeInvalidFormat, vgaerrors.GetCode(err), "body %q", body)
	}

	_, err = decode(`{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`)
	assert.Equal(t, vgaerrors.ErrCodeInvalidInput, vgaerrors.GetCode(err))
}

type recordingAPIHooks struct {
	observability.NoopAPIHooks
	requests  []string
	responses []string
}

func (h *recordingAPIHooks) OnRequest(_ context.Context, method, route string) {
	h.requests = append(h.requests, method+" "+route)
}

func (h *recordingAPIHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.responses = append(h.responses, fmt.Sprintf("%s %s %d", method, route, status))
}

func TestInstrument(t *testing.T) {
	hooks := &recordingAPIHooks{}
	observability.SetAPIHooks(hooks)
	t.Cleanup(observability.Reset)

	r := chi.NewRouter()
	r.Use(Instrument(log.New(io.Discard)))
	r.Get("/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, []string{"GET /v1/runs/abc"}, hooks.requests)
	assert.Equal(t, []string{"GET /v1/runs/{id} 418"}, hooks.responses)
}
