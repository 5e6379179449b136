// Package service exposes the optional HTTP side of a conversion run:
// a health endpoint plus the prometheus metrics handler on one listener.
// Nothing is served unless an address is configured.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/checkmate-ci/checkmate/metrics"
)

type Service struct {
	server *http.Server
}

func New() *Service {
	return &Service{}
}

// Start binds addr and serves /healthz and /metrics in the background.
func (s *Service) Start(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	s.server = &http.Server{
		Handler: c.Handler(mux),
		Addr:    addr,
	}

	go func() {
		log.Info("starting http server", "addr", addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting http server", "err", err)
			metrics.RecordErrorDetails("error starting http server", err)
		}
	}()
}

// Shutdown stops the listener. Safe to call when Start never ran.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	log.Debug("received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
