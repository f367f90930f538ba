package simulator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server is the simulator HTTP server.
type Server struct {
	config  Config
	logger  zerolog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// NewServer creates a simulator server. Requests are logged to logger at
// debug level.
func NewServer(cfg Config, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"region": cfg.Region,
		})
	})

	var handler http.Handler = mux
	handler = AuthPassthroughMiddleware(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware(handler)
	handler = otelhttp.NewHandler(handler, "simulator-aws")

	return &Server{
		config:  cfg,
		logger:  logger,
		mux:     mux,
		handler: handler,
	}
}

// HandleFunc registers a handler function on the server's mux.
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// Mux returns the underlying ServeMux for direct registration.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// Handler returns the full middleware chain, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the server and blocks until shutdown.
// It listens for SIGTERM and SIGINT for graceful shutdown.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		s.logger.Info().Str("signal", sig.String()).Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		done <- srv.Shutdown(ctx)
	}()

	s.printBanner()

	var err error
	if s.config.TLSCert != "" && s.config.TLSKey != "" {
		s.logger.Info().Str("addr", s.config.ListenAddr).Msg("starting HTTPS server")
		err = srv.ListenAndServeTLS(s.config.TLSCert, s.config.TLSKey)
	} else {
		s.logger.Info().Str("addr", s.config.ListenAddr).Msg("starting HTTP server")
		err = srv.ListenAndServe()
	}

	if err == http.ErrServerClosed {
		return <-done
	}
	return err
}

func (s *Server) printBanner() {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  cloudtour AWS simulator (%s)\n", s.config.Region)
	fmt.Fprintf(os.Stderr, "  Listening on %s\n", s.config.ListenAddr)
	fmt.Fprintf(os.Stderr, "  cloudtour config: CLOUDTOUR_ENDPOINT_URL=http://localhost%s\n", s.config.ListenAddr)
	fmt.Fprintf(os.Stderr, "\n")
}
