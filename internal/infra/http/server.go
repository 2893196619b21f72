package http

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	srv *http.Server
}

// New собирает служебный mux (/health, /metrics) и монтирует api в корень.
// Если api == nil, отдаются только служебные маршруты.
func New(addr string, exposeMetrics bool, api http.Handler, extra map[string]http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewMux(exposeMetrics, api, extra),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewMux(exposeMetrics bool, api http.Handler, extra map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	for pattern, h := range extra {
		mux.Handle(pattern, h)
	}

	if api != nil {
		mux.Handle("/", api)
	}
	return mux
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
