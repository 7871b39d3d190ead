package api

import (
	"budgie/internal/metrics"
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type ctxKey string

const (
	RequestIDHdrName = "X-Request-ID"

	requestIDKey ctxKey = "request_id"
)

// RequestIDFrom returns the request id assigned by the requestID middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the status code written by the handler and whether the response has started.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHdrName)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHdrName, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// recovery turns a handler panic into a 500, unless the response was already started.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				log.WithFields(log.Fields{
					"requestID": w.Header().Get(RequestIDHdrName),
					"path":      r.URL.Path,
					"stack":     string(debug.Stack()),
				}).Errorf("panic serving request: %v", p)
				if !rec.wrote {
					writeError(w, http.StatusInternalServerError, "InternalError", "internal server error")
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"duration":  time.Since(start),
			"requestID": RequestIDFrom(r.Context()),
		}).Debug("http request")
	})
}

// instrument records request counts and latency per route template, so ids do not blow up label cardinality.
func instrument(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unknown"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.IncRequestsInFlight()
			defer m.DecRequestsInFlight()
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.RecordRequest(r.Method, route, rec.status, time.Since(start))
		})
	}
}
