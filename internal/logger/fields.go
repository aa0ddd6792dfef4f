package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently so lifecycle events can be queried by service and phase.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID
	KeySpanID  = "span_id"  // OpenTelemetry span ID

	// ========================================================================
	// Service Identity
	// ========================================================================
	KeyService  = "service"   // Service instance name
	KeyUUID     = "uuid"      // Service instance UUID
	KeyModule   = "module"    // Module the service was discovered in
	KeyClass    = "type"      // Service type name from its definition
	KeyFilePath = "file_path" // Source file of the module
	KeyLogger   = "logger"    // Logical logger name

	// ========================================================================
	// Lifecycle
	// ========================================================================
	KeyState   = "state"   // starting, aborting, ready, stopping, terminated
	KeyEvent   = "event"   // lifecycle.setup, lifecycle.initialized, ...
	KeyPhase   = "phase"   // Phase of the run that produced an error
	KeyHandler = "handler" // Hook or invoker name
	KeyCount   = "count"   // Number of items in a batch

	// ========================================================================
	// Discovery
	// ========================================================================
	KeyRegistry  = "registry"  // Discovery backend name
	KeyOperation = "operation" // register, deregister

	// ========================================================================
	// Diagnostics
	// ========================================================================
	KeyTaskFunction = "task_function_name" // Function of a task left pending
	KeyTaskFile     = "task_filename"      // Source location of that task

	// ========================================================================
	// Process
	// ========================================================================
	KeySignal     = "signal"      // Received OS signal
	KeyProcessID  = "process_id"  // Process ID
	KeyPath       = "path"        // File path (config, watched files)
	KeyAddress    = "address"     // Listen address
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// DurationMs returns a slog.Attr with a duration expressed in milliseconds
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}
