package ports

import "context"

// MetricsCollector records quantitative observability signals. The
// interface is intentionally generic so adapters can back onto Prometheus,
// StatsD, or vendor-specific SDKs. The metric names emitted by this
// module's components are:
//   - Counters:
//     streampipe_controller_submissions_total{controller_id,status="success|failure|cancelled"}
//     streampipe_step_executions_total{step_class,status="success|failure"}
//   - Gauges:
//     streampipe_controller_active_workers{controller_id}
//   - Histograms:
//     streampipe_step_processing_seconds{step_class}
//     streampipe_step_waiting_seconds{step_class}
//     streampipe_step_total_seconds{step_class}
//     streampipe_controller_waiting_seconds{controller_id}
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}
