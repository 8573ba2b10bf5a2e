package httputil

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/vgadepth/pkg/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Instrument reports every request to the observability API hooks and
// logs it at debug level. Responses are reported by their chi route
// pattern, so "/v1/runs/{id}" rather than the concrete path.
func Instrument(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			hooks := observability.API()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			d := time.Since(start)
			hooks.OnResponse(r.Context(), r.Method, route, rec.status, d)
			logger.Debug("request", "method", r.Method, "route", route, "status", rec.status, "duration", d.Round(time.Microsecond))
		})
	}
}
