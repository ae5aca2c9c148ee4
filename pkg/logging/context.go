package logging

import (
	"context"
)

const (
	TraceIDKey       = "trace_id"
	InvocationIDKey  = "invocation_id"
	LogicalSourceKey = "logical_source"
	ServiceNameKey   = "service_name"
)

type contextKey string

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithInvocationID(ctx context.Context, invocationID string) context.Context {
	return context.WithValue(ctx, contextKey(InvocationIDKey), invocationID)
}

func WithLogicalSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, contextKey(LogicalSourceKey), source)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

func stringValue(ctx context.Context, key string) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetInvocationID(ctx context.Context) string {
	return stringValue(ctx, InvocationIDKey)
}

func GetLogicalSource(ctx context.Context) string {
	return stringValue(ctx, LogicalSourceKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

// GetLogFields returns the context values as zap-style key/value pairs, in a
// fixed order.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	for _, key := range []string{TraceIDKey, InvocationIDKey, LogicalSourceKey, ServiceNameKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
