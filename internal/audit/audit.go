// Package audit registra los eventos de seguridad de la recuperación de
// cuentas en un logger propio ("audit"), separado del log operativo.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/recovery/internal/observability/logger"
)

// Event es el nombre estable de un evento de auditoría.
type Event string

const (
	EventResetRequested Event = "password_reset_requested"
	EventResetRejected  Event = "password_reset_rejected"
	EventResetCompleted Event = "password_reset_completed"
	EventResetFailed    Event = "password_reset_failed"
)

// Log escribe ev con los campos dados. Siempre a nivel info: un evento de
// auditoría no es un error aunque describa un intento fallido.
func Log(ctx context.Context, ev Event, fields ...zap.Field) {
	fields = append(fields,
		zap.String("event", string(ev)),
		zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	)
	logger.From(ctx).Named("audit").Info("audit event", fields...)
}
