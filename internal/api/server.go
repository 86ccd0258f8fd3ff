package api

import (
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/middleware"
)

// Routes builds the full handler chain: API and health routes wrapped in
// timeout, metrics and request-id middleware. m may be nil.
func Routes(h *Handler, checker *health.Checker, cfg config.ServerConfig, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if cfg.RequestTimeout > 0 {
		chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}

// NewServer creates the HTTP server for the API.
func NewServer(handler http.Handler, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
