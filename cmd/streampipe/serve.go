package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	inframetrics "github.com/kranzdev/streampipe/internal/infrastructure/metrics"
)

func newServeCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose Prometheus metrics for pipelines run elsewhere in this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Gatherer == nil {
				return fmt.Errorf("no metrics registry configured")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on %s/metrics\n", addr)
			return inframetrics.Serve(ctx, addr, app.Gatherer)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "address to serve /metrics on")
	return cmd
}
