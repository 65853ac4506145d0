// Package logging provides a minimal logging interface and adapters for toolmesh.
//
// The Logger interface defines the leveled logging methods (Debug, Info, Warn,
// Error) that the orchestrator, dispatcher and server use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping go.uber.org/zap (used by the server and CLI)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	zl, logger, err := logging.NewZapLogger(logging.LogLevelInfo, "console")
//	orch, err := toolmesh.New(func(o *toolmesh.Options) { o.Logger = logger })
//
// Message keys follow an event style ("turn.start", "tool.dispatch.search")
// and args are alternating key/value pairs.
package logging
