package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	inframetrics "github.com/kranzdev/streampipe/internal/infrastructure/metrics"
	logginginfra "github.com/kranzdev/streampipe/internal/infrastructure/logging"
	"github.com/kranzdev/streampipe/internal/ports"
)

func main() {
	appLogger, err := logginginfra.New(logginginfra.Options{
		Level:     "info",
		Console:   true,
		Component: "cli",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	correlationID := ports.GenerateCorrelationID()
	ctx := ports.WithCorrelationID(context.Background(), correlationID)

	registry := prometheus.NewRegistry()
	collector := inframetrics.New(registry)

	app := &AppContext{
		Logger:   appLogger,
		Metrics:  collector,
		Gatherer: registry,
	}

	rootCmd := newRootCmd(app)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
