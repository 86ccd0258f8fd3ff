package metrics

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NewMux routes /metrics to g and serves an index of the gathered families
// at /. A nil g uses the default gatherer.
func NewMux(g prometheus.Gatherer) *http.ServeMux {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		families, err := g.Gather()
		if err != nil {
			slog.Warn("gathering metrics for index", "error", err)
		}
		var b strings.Builder
		b.WriteString(`<html><body><h1>Corpus Analyser Metrics</h1><p><a href="/metrics">/metrics</a></p><ul>`)
		for _, f := range families {
			fmt.Fprintf(&b, "<li><code>%s</code> %s</li>", html.EscapeString(f.GetName()), html.EscapeString(f.GetHelp()))
		}
		b.WriteString("</ul></body></html>")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, b.String())
	})
	return mux
}

// StartServer serves NewMux(g) on port in the background and returns the
// server's shutdown function.
func StartServer(port int, g prometheus.Gatherer) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMux(g),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
