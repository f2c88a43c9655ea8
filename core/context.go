package core

import "context"

// Context keys for execution options
type contextKey string

const (
	suppressHeaderKey contextKey = "suppressHeader"
	skipHistoryKey    contextKey = "skipHistory"
)

// WithSuppressHeader marks ctx so that progress headers are not printed.
func WithSuppressHeader(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressHeaderKey, true)
}

// shouldSuppressHeader returns whether headers should be suppressed from context
func shouldSuppressHeader(ctx context.Context) bool {
	val := ctx.Value(suppressHeaderKey)
	if val == nil {
		return false // default: show headers
	}
	suppress, ok := val.(bool)
	return ok && suppress
}

// WithSkipHistory marks lookups made with ctx as not worth recording.
func WithSkipHistory(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipHistoryKey, true)
}

// shouldSkipHistory returns whether lookup history should be skipped
func shouldSkipHistory(ctx context.Context) bool {
	skip, ok := ctx.Value(skipHistoryKey).(bool)
	return ok && skip
}
