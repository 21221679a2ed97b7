package ports

import "context"

// Logger is the logging port shared by the ledger, adapters and HTTP layer.
// Fields are free-form key/value pairs; implementations decide rendering.
// The variadic maps allow call sites to omit fields entirely.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error carries the error separately from the message so implementations
	// can render or report it distinctly.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
