// Package tracing wraps OpenTelemetry so attention operations can be traced
// with a stdout or custom exporter. Without initialisation spans are no-op.
package tracing
