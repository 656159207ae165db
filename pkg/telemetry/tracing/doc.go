// Package tracing exports OpenTelemetry spans for purge runs over OTLP gRPC.
//
// A purge run is one "retention.purge" span with a child span per deletion
// step carrying the table and the number of rows deleted.
package tracing
