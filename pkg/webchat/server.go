package webchat

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 30 * time.Second

type ServerConfig struct {
	Addr    string
	Handler http.Handler
	// Store is closed after the HTTP server has drained.
	Store           io.Closer
	ShutdownTimeout time.Duration
}

// Server drives the HTTP server lifecycle: serve until the context is
// cancelled or an interrupt arrives, then drain and close the store.
type Server struct {
	httpSrv         *http.Server
	store           io.Closer
	shutdownTimeout time.Duration
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Handler == nil {
		return nil, errors.New("server handler is nil")
	}
	if cfg.Addr == "" {
		return nil, errors.New("server addr is empty")
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &Server{
		httpSrv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:           cfg.Store,
		shutdownTimeout: timeout,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	if s == nil || s.httpSrv == nil {
		return errors.New("server is not initialized")
	}
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		s.closeStore()
		return errors.Wrapf(err, "listen on %s", s.httpSrv.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on ln until ctx is done, SIGINT/SIGTERM arrives or
// the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	if s == nil || s.httpSrv == nil {
		return errors.New("server is not initialized")
	}
	eg, gctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		err := s.httpSrv.Shutdown(shutdownCtx)
		if err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		s.closeStore()
		log.Info().Msg("server shutdown complete")
		return err
	})

	eg.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("starting devassist server")
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	return eg.Wait()
}

func (s *Server) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Error().Err(err).Msg("history store close error")
		return
	}
	log.Info().Msg("history store closed")
}
