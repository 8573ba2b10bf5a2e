package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/vgadepth/pkg/cache"
	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/httputil"
	"github.com/matzehuels/vgadepth/pkg/persist"
	"github.com/matzehuels/vgadepth/pkg/pipeline"
)

const lineGraph = `{"region":{"min":[0,0],"max":[3,1]},"spacing":1,"edges":[[0,0,1,0],[1,0,2,0]]}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	c, err := cache.NewMemoryCache(64)
	require.NoError(t, err)
	srv := httptest.NewServer(New(pipeline.NewRunner(c, nil, nil)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/stepdepth", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestStepDepthRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, `{"graph":`+lineGraph+`,"points":[[0.5,0.5]],"type":"visual"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rec := decode[pipeline.Record](t, resp)
	assert.Equal(t, "/v1/runs/"+rec.RunID, resp.Header.Get("Location"))
	assert.Equal(t, "visual", rec.Model)
	assert.Equal(t, "Visual Step Depth", rec.Column)
	assert.Equal(t, 3, rec.Settled)
	assert.Equal(t, 2.0, rec.MaxDepth)
	assert.Nil(t, rec.Values)

	got := decode[pipeline.Record](t, get(t, srv, "/v1/runs/"+rec.RunID))
	assert.Equal(t, rec.RunID, got.RunID)
	assert.Equal(t, rec.Summary, got.Summary)
	assert.Nil(t, got.Values)

	colResp := get(t, srv, "/v1/runs/"+rec.RunID+"/column")
	require.Equal(t, http.StatusOK, colResp.StatusCode)
	col := decode[persist.Column](t, colResp)
	assert.Equal(t, []float64{0, 1, 2}, col.Values)
	assert.Equal(t, 3, col.Cols)
}

func TestStepDepthCacheHit(t *testing.T) {
	srv := newTestServer(t)
	body := `{"graph":` + lineGraph + `,"points":[[2.5,0.5]],"type":"metric"}`

	first := decode[pipeline.Record](t, post(t, srv, body))
	second := decode[pipeline.Record](t, post(t, srv, body))
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.MaxDepth, second.MaxDepth)
}

func TestStepDepthErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   vgaerrors.Code
	}{
		{"outside region", `{"graph":` + lineGraph + `,"points":[[0.5,0.5],[7,7]],"type":"visual"}`, http.StatusBadRequest, vgaerrors.ErrCodePointOutsideRegion},
		{"missing type", `{"graph":` + lineGraph + `,"points":[[0.5,0.5]]}`, http.StatusBadRequest, vgaerrors.ErrCodeRequiredArgument},
		{"unknown type", `{"graph":` + lineGraph + `,"points":[[0.5,0.5]],"type":"isovist"}`, http.StatusBadRequest, vgaerrors.ErrCodeInvalidArgument},
		{"missing points", `{"graph":` + lineGraph + `,"type":"visual"}`, http.StatusBadRequest, vgaerrors.ErrCodeRequiredArgument},
		{"missing graph", `{"points":[[0.5,0.5]],"type":"visual"}`, http.StatusBadRequest, vgaerrors.ErrCodeRequiredArgument},
		{"unknown field", `{"graph":` + lineGraph + `,"type":"visual","extra":1}`, http.StatusBadRequest, vgaerrors.ErrCodeInvalidFormat},
		{"malformed json", `{"graph":`, http.StatusBadRequest, vgaerrors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[httputil.ErrorBody](t, resp)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestStepDepthBadGraph(t *testing.T) {
	srv := newTestServer(t)
	bad := `{"region":{"min":[0,0],"max":[3,1]},"spacing":1,"edges":[[0,0,9,9]]}`
	resp := post(t, srv, `{"graph":`+bad+`,"points":[[0.5,0.5]],"type":"visual"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStepDepthGraphTooLarge(t *testing.T) {
	c, err := cache.NewMemoryCache(8)
	require.NoError(t, err)
	srv := httptest.NewServer(New(pipeline.NewRunner(c, nil, nil), WithMaxCells(100)).Handler())
	t.Cleanup(srv.Close)

	tests := []struct {
		name  string
		graph string
		code  vgaerrors.Code
	}{
		{"over limit", `{"region":{"min":[0,0],"max":[100000,100000]},"spacing":1,"edges":[]}`, vgaerrors.ErrCodeInvalidInput},
		{"over int range", `{"region":{"min":[0,0],"max":[1e300,1]},"spacing":1,"edges":[]}`, vgaerrors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, `{"graph":`+tt.graph+`,"points":[[0.5,0.5]],"type":"visual"}`)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, decode[httputil.ErrorBody](t, resp).Code)
		})
	}

	resp := post(t, srv, `{"graph":`+lineGraph+`,"points":[[0.5,0.5]],"type":"visual"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRunNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv, "/v1/runs/00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, vgaerrors.ErrCodeRunNotFound, decode[httputil.ErrorBody](t, resp).Code)

	resp = get(t, srv, "/v1/runs/nope/column")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, srv, "/v2/anything")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, vgaerrors.ErrCodeNotFound, decode[httputil.ErrorBody](t, resp).Code)
}
