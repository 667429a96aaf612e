// Package telemetry provides observability instrumentation for resgen.
//
// It bundles structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus) behind a single Telemetry value that the CLI builds
// once per invocation and threads through the orchestrator and the task
// executor.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.TextfilePath = "build/resgen.prom"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	logger := tel.Logger.NewComponentLogger("orchestrator")
//	logger.WithFamily("packaged").WithFeature("strings").Info("Generator registered")
//
// # Metrics
//
// resgen is a short-lived build step, so metrics are not served over HTTP.
// When a textfile path is configured they are written in text exposition
// format at the end of the build, ready for a node exporter textfile
// collector:
//
//   - resgen_orchestrations_total{outcome}
//   - resgen_orchestration_duration_seconds
//   - resgen_generators_instantiated_total{family,feature}
//   - resgen_tasks_executed_total{group,status}
//   - resgen_task_duration_seconds{group}
//   - resgen_active_tasks
//   - resgen_errors_by_class_total{class}
//   - resgen_errors_by_code_total{code}
//
// # Tracing
//
// Spans are opened for each orchestration phase and each executed task.
// Supported exporters are "stdout", "otlp" (gRPC) and "none".
package telemetry
