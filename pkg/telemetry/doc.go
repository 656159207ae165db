// Package telemetry groups the observability packages of the truncator.
//
//   - logging: slog logger construction with credential redaction
//   - metrics: Prometheus metrics for purge runs
//   - tracing: OpenTelemetry spans for purge runs and their steps
package telemetry
