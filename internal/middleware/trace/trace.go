// Package trace assigns request IDs and records one log line and one metric
// sample per HTTP request.
package trace

import (
	"context"
	"net/http"
	"time"

	"budget/internal/log"

	"github.com/google/uuid"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	routeKey
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

// UnmatchedRoute labels requests no route pattern claimed.
const UnmatchedRoute = "unmatched"

// RequestObserver receives one sample per completed request.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string
	observer  RequestObserver
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string, observer RequestObserver) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Middleware{logger: logger, extractIP: extractIP, observer: observer}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	structured := log.NewStructuredLogger(m.logger)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		route := UnmatchedRoute
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, routeKey, &route)
		ctx = context.WithValue(ctx, log.LoggerContextKey, m.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		if m.observer != nil {
			m.observer.ObserveRequest(r.Method, route, rw.statusCode, duration)
		}
		structured.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP,
			log.FieldRoute, route, log.FieldRequestID, requestID)
	})
}

// Route wraps a routed handler so the matched pattern reaches the trace
// middleware. The mux sets r.Pattern on its own copy of the request.
func Route(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := r.Context().Value(routeKey).(*string); ok && r.Pattern != "" {
			*p = r.Pattern
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
