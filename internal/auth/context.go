package auth

import "context"

type callerKey struct{}

// WithCaller кладёт идентичность вызывающего в контекст запроса.
func WithCaller(ctx context.Context, callerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, callerID)
}

// CallerFromContext: пустая строка, если запрос не прошёл Gate.
func CallerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(callerKey{}).(string)
	return v
}
