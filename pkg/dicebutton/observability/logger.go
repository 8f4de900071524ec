// Package observability provides structured logging, metrics, and
// distributed tracing for the button-interaction pipeline.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds click context to a logger.
// Returns a new logger with command_id, flow_id, and encoding fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "hold_reroll", flowID, "current")
//	enriched.Info("handling click") // includes command_id, flow_id, encoding
func EnrichLogger(logger *slog.Logger, commandID, flowID, encoding string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("command_id", commandID),
		slog.String("flow_id", flowID),
		slog.String("encoding", encoding),
	)
}

// LogClickStart logs the start of click handling.
func LogClickStart(logger *slog.Logger, commandID, buttonValue string) {
	if logger == nil {
		return
	}
	logger.Debug("click received",
		slog.String("command_id", commandID),
		slog.String("button_value", buttonValue),
	)
}

// LogClickHandled logs a fully handled click.
func LogClickHandled(logger *slog.Logger, commandID, outcome string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("click handled",
		slog.String("command_id", commandID),
		slog.String("outcome", outcome),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogClickError logs click handling failure.
func LogClickError(logger *slog.Logger, commandID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("click handling failed",
		slog.String("command_id", commandID),
		slog.String("error", err.Error()),
	)
}

// LogClickRejected logs an ignored click.
func LogClickRejected(logger *slog.Logger, commandID, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("click rejected",
		slog.String("command_id", commandID),
		slog.String("reason", reason),
	)
}

// LogLegacyMigration logs a legacy identifier bridged into a flow record.
func LogLegacyMigration(logger *slog.Logger, commandID, encoding, flowID string) {
	if logger == nil {
		return
	}
	logger.Info("legacy flow migrated",
		slog.String("command_id", commandID),
		slog.String("encoding", encoding),
		slog.String("flow_id", flowID),
	)
}

// LogFlowStart logs the creation of a new flow.
func LogFlowStart(logger *slog.Logger, commandID, flowID string, channelID int64) {
	if logger == nil {
		return
	}
	logger.Info("flow started",
		slog.String("command_id", commandID),
		slog.String("flow_id", flowID),
		slog.Int64("channel_id", channelID),
	)
}

// LogStoreError logs a flow record store failure.
func LogStoreError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("flow record store failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogAdapterError logs a best-effort chat operation failure (non-fatal).
func LogAdapterError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("chat operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogRenderError logs an answer illustration failure; the answer is
// still sent as text.
func LogRenderError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("answer image rendering failed",
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
