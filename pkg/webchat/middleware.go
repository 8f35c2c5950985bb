package webchat

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// withRequestLogging tags each request with an id (reusing a client supplied
// one), stores a request-scoped logger in the context and writes an access
// log line once the handler returns.
func withRequestLogging(base zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requestID := strings.TrimSpace(req.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := base.With().Str("request_id", requestID).Logger()
		req = req.WithContext(logger.WithContext(req.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, req)

		ev := logger.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = logger.Warn()
		}
		ev.Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// newCORS allows a single origin with credentials and any method or header.
func newCORS(origin string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader},
		Logger:         corsLogger{},
	})
}

type corsLogger struct{}

func (corsLogger) Printf(format string, args ...any) {
	log.Trace().Msgf(format, args...)
}
