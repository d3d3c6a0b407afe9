package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server exposes /metrics on its own port, apart from the API.
type Server struct {
	srv *http.Server
	log *logrus.Entry
}

func NewServer(port string, gatherer prometheus.Gatherer, log *logrus.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.WithField("component", "monitoring"),
	}
}

// Run blocks serving until Shutdown.
func (s *Server) Run() {
	s.log.WithField("addr", s.srv.Addr).Info("Starting monitoring server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.WithError(err).Error("Monitoring server stopped unexpectedly")
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down monitoring server")
	return s.srv.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }
