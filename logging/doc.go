// Package logging provides a minimal logging interface and adapters for medflow.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the servers, clients and pipelines use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	srv := a2a.NewServer(executor, a2a.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
