package webchat

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Router owns the HTTP mux for the chat API.
type Router struct {
	svc           ChatHTTPService
	allowedOrigin string
	logger        zerolog.Logger
	mux           *http.ServeMux
}

// RouterOption configures optional settings for a Router.
type RouterOption func(*Router) error

func WithAllowedOrigin(origin string) RouterOption {
	return func(r *Router) error {
		if origin == "" {
			return errors.New("allowed origin is empty")
		}
		r.allowedOrigin = origin
		return nil
	}
}

// WithLogger sets the logger request-scoped loggers derive from.
func WithLogger(l zerolog.Logger) RouterOption {
	return func(r *Router) error {
		r.logger = l
		return nil
	}
}

func NewRouter(svc ChatHTTPService, opts ...RouterOption) (*Router, error) {
	if svc == nil {
		return nil, errors.New("chat service is nil")
	}
	r := &Router{
		svc:           svc,
		allowedOrigin: "http://localhost:3000",
		logger:        log.Logger,
		mux:           http.NewServeMux(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.mux.Handle("POST /chat", NewChatHTTPHandler(svc))
	r.mux.Handle("GET /history/{session_id}", NewHistoryHTTPHandler(svc))
	r.mux.Handle("GET /{$}", NewRootHTTPHandler())
	return r, nil
}

// Handler returns the mux wrapped with CORS and request logging.
func (r *Router) Handler() http.Handler {
	return withRequestLogging(r.logger, newCORS(r.allowedOrigin).Handler(r.mux))
}
