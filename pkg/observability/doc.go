// Package observability provides structured logging, Prometheus metrics,
// health probing, OpenTelemetry wiring, panic recovery, and graceful
// shutdown coordination for the OpenBay services.
package observability
