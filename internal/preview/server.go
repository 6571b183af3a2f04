// Package preview serves the built output tree over HTTP for local
// inspection before deployment. The server also exposes health and
// Prometheus metrics endpoints.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Server serves a directory tree with request logging.
type Server struct {
	dir      string
	addr     string
	registry *prometheus.Registry
	httpSrv  *http.Server
}

// NewServer creates a preview server for dir listening on addr. A nil
// registry still serves /metrics from a private registry.
func NewServer(dir, addr string, registry *prometheus.Registry) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Server{dir: dir, addr: addr, registry: registry}
}

// logRequests wraps a handler with slog access logging.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request served",
			slog.String("method", r.Method),
			logfields.Path(r.URL.Path),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	})
}

// Handler builds the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", logRequests(http.FileServer(http.Dir(s.dir))))
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.Serve(ln) }()

	slog.Info("Preview server listening",
		slog.String("addr", ln.Addr().String()),
		logfields.Path(s.dir))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown preview server: %w", err)
	}
	return nil
}
