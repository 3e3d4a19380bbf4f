package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kranzdev/streampipe/internal/ports"
)

// rootFlags are persistent flags shared by every subcommand.
type rootFlags struct {
	verbose bool
}

// AppContext bundles the long-lived services constructed at startup.
type AppContext struct {
	Logger   ports.Logger
	Metrics  ports.MetricsCollector
	Gatherer prometheus.Gatherer
}

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "streampipe",
		Short:         "streampipe runs declarative in-process streaming pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newRunCmd(flags, app))
	cmd.AddCommand(newServeCmd(flags, app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
