package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/netutil"

	"webmon/internal/metrics"
	"webmon/internal/monitor"
)

// HTTPServer serves monitored traffic. Requests are proxied to Upstream when
// set and answered with 404 otherwise; either way they are tagged with
// their URL pattern.
type HTTPServer struct {
	ListenAddr string
	Upstream   string
	MaxConns   int
	Handler    *monitor.Handler
	Verbose    bool

	srv *http.Server
}

func NewHTTPServer(listenAddr, upstream string, maxConns int, handler *monitor.Handler, verbose bool) *HTTPServer {
	return &HTTPServer{
		ListenAddr: listenAddr,
		Upstream:   upstream,
		MaxConns:   maxConns,
		Handler:    handler,
		Verbose:    verbose,
	}
}

// HTTPHandler returns the monitored handler chain.
func (s *HTTPServer) HTTPHandler() (http.Handler, error) {
	backend := http.NotFoundHandler()
	if s.Upstream != "" {
		target, err := url.Parse(s.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream %q: %w", s.Upstream, err)
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeProxy, target.Host).Inc()
			log.Err(err).Str("uri", r.URL.RequestURI()).Msg("upstream request failed")
			w.WriteHeader(http.StatusBadGateway)
		}
		backend = proxy
	}
	return s.Handler.Middleware(backend), nil
}

func (s *HTTPServer) Start() error {
	listener, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		log.Err(err).Msgf("failed to listen on TCP %s", s.ListenAddr)
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown is called.
func (s *HTTPServer) Serve(listener net.Listener) error {
	if s.MaxConns > 0 {
		listener = netutil.LimitListener(listener, s.MaxConns)
	}

	h, err := s.HTTPHandler()
	if err != nil {
		listener.Close()
		return err
	}

	s.srv = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Msgf("Monitored HTTP server listening on %s", listener.Addr())

	if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
