package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mpimeasure/pkg/log"
	"mpimeasure/pkg/measure"
	"mpimeasure/pkg/promexport"
)

const shutdownTimeout = 5 * time.Second

// metricsServer serves the group statistics of a run on /metrics.
type metricsServer struct {
	addr     string
	srv      *http.Server
	observer *promexport.Observer
}

func startMetrics(addr string, kind measure.Kind) (*metricsServer, error) {
	reg := prometheus.NewRegistry()
	observer, err := promexport.NewObserver(reg, kind)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s := &metricsServer{
		addr:     ln.Addr().String(),
		srv:      &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout},
		observer: observer,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server on %s failed: %v", s.addr, err)
		}
	}()
	log.Info("Serving metrics on http://%s/metrics", s.addr)
	return s, nil
}

func (s *metricsServer) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
