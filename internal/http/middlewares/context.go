package middlewares

import "context"

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxSessionKey   ctxKey = "session_id"
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

// GetRequestID devuelve el request ID del contexto o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestIDKey).(string)
	return v
}

func setSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxSessionKey, sid)
}

// GetSessionID devuelve el id de sesión que inyectó WithSession.
func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(ctxSessionKey).(string)
	return v
}
