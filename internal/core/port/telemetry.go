package port

import (
	"context"
	"time"
)

// Span is the tracing handle handed out by Telemetry. It hides the tracing
// backend from the core.
type Span interface {
	End()
	SetAttributes(attrs map[string]interface{})
	SetStatus(code string, message string)
	RecordError(err error)
}

// Telemetry lets repositories and services emit traces and events without
// knowing the implementation.
type Telemetry interface {
	// Tracing - Span creation
	StartRepositorySpan(ctx context.Context, operation string, entity string, attrs map[string]interface{}) (context.Context, Span)
	StartServiceSpan(ctx context.Context, service string, operation string, accountID int, attrs map[string]interface{}) (context.Context, Span)
	StartHTTPSpan(ctx context.Context, method string, path string, attrs map[string]interface{}) (context.Context, Span)

	// Repository operations
	RecordRepositoryOperation(ctx context.Context, operation string, entity string, duration time.Duration, err error)
	RecordRepositoryQuery(ctx context.Context, operation string, entity string, query string, args []interface{})

	// Service operations
	RecordServiceOperation(ctx context.Context, service string, operation string, accountID int, duration time.Duration, err error)

	// Business events
	RecordBusinessEvent(ctx context.Context, event string, entity string, entityID string, accountID int, metadata map[string]interface{})

	// HTTP operations
	RecordHTTPOperation(ctx context.Context, method string, path string, statusCode int, duration time.Duration)

	// Errors
	RecordError(ctx context.Context, operation string, err error, metadata map[string]interface{})
}
