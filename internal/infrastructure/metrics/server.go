package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Serve starts a /metrics HTTP endpoint on addr, exposing every vector
// registered against registerer (prometheus.DefaultRegisterer if nil),
// and blocks until ctx is cancelled or the server fails. This is the Go
// counterpart of the source program's single prometheus_client
// start_http_server(8000) call: one listener, one scrape endpoint, no
// custom auth or TLS.
func Serve(ctx context.Context, addr string, registerer prometheus.Gatherer) error {
	if registerer == nil {
		registerer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
