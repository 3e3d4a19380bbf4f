// Command remoteserver hosts exactly one step behind the
// ModuleService.Run RPC contract, for exercising internal/remoterpc's
// Remote step from another process.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kranzdev/streampipe/internal/demo"
	infralogging "github.com/kranzdev/streampipe/internal/infrastructure/logging"
	inframetrics "github.com/kranzdev/streampipe/internal/infrastructure/metrics"
	"github.com/kranzdev/streampipe/internal/remoterpc"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

func main() {
	var addr string

	cmd := &cobra.Command{
		Use:   "remoteserver",
		Short: "Host a single transform step over the remote-step RPC contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			registry := prometheus.NewRegistry()
			metrics := inframetrics.New(registry)
			logger, err := infralogging.New(infralogging.Options{Component: "remoteserver", Level: "info"})
			if err != nil {
				return err
			}

			leaf := step.NewLeaf[demo.Data]("transform", "RemoteTransform", step.Options{UseMutex: false, Timeout: 4 * time.Second}, transform)
			svc := remoterpc.NewModuleService[demo.Data](leaf, nil, metrics, logger)

			fmt.Fprintf(cmd.OutOrStdout(), "hosting ModuleService.Run on %s\n", addr)
			return remoterpc.Serve(ctx, addr, svc)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":50051", "address to listen on")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// transform uppercases Key and appends " transformed", sleeping a random
// 1-3s first to simulate remote work, matching the source program's
// TestModule.execute.
func transform(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
	time.Sleep(time.Duration(1+rand.Intn(3)) * time.Second)

	if strings.TrimSpace(pkg.Data.Key) == "" {
		st.Message = "transformation failed: key missing"
		return fmt.Errorf("key missing")
	}
	pkg.Data.Key = strings.ToUpper(pkg.Data.Key) + " transformed"
	st.Message = "transformation succeeded"
	return nil
}
