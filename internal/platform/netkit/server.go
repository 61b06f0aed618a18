package netkit

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/config"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/logger"
)

// Server is a thin wrapper over chi + stdlib http.Server.
type Server struct {
	addr string
	mux  *chi.Mux
	srv  *http.Server
}

// NewServer creates a server, applying opts to the underlying chi mux (route
// mounting, middleware).
func NewServer(cfg config.Conf, opts ...func(*chi.Mux)) *Server {
	addr := cfg.MayString("API_ADDR", ":8080")
	m := chi.NewRouter()
	for _, o := range opts {
		o(m)
	}
	return &Server{
		addr: addr,
		mux:  m,
		srv: &http.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router returns a Router facade over the internal chi mux.
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Addr returns the listening address.
func (s *Server) Addr() string { return s.addr }

// Run starts the server and blocks until it is shut down.
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("http")
	log.Info().Str("addr", s.addr).Msg("http listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
