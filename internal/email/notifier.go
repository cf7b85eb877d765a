package email

import (
	"context"
	"errors"

	"github.com/dropDatabas3/recovery/internal/metrics"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
)

// Transport es el borde con el proveedor de mail real (SMTP, SES, pretend).
//
// Deliver devuelve (true, nil) si el mensaje fue aceptado. Un (false, nil)
// significa que el proveedor rechazó el envío sin dar detalle. Los errores
// deberían venir como *TransportError ya clasificados.
type Transport interface {
	Deliver(ctx context.Context, msg Message) (bool, error)
}

// TransportFunc adapta una función a Transport.
type TransportFunc func(ctx context.Context, msg Message) (bool, error)

func (f TransportFunc) Deliver(ctx context.Context, msg Message) (bool, error) { return f(ctx, msg) }

const defaultFallback = "Sending the email failed. Please try again later or contact the administrator."

// Notifier envía Messages por un Transport y traduce cualquier falla a *MailError.
// No reintenta: una falla se reporta una sola vez.
type Notifier struct {
	transport Transport
}

// NewNotifier crea un Notifier sobre el transporte dado.
func NewNotifier(t Transport) *Notifier {
	return &Notifier{transport: t}
}

// Send entrega msg. fallback es el mensaje que ve el usuario si el envío falla
// por cualquier motivo que no sea la falta de remitente.
func (n *Notifier) Send(ctx context.Context, msg Message, fallback string) error {
	log := logger.From(ctx).With(
		logger.Component("Notifier"),
		logger.Email(msg.To().Address),
	)
	if fallback == "" {
		fallback = defaultFallback
	}

	if n == nil || n.transport == nil {
		log.Error("no mail transport configured")
		metrics.MailSendFailed(string(ReasonSendFailed))
		return &MailError{Reason: ReasonSendFailed, Detail: fallback}
	}

	ok, err := n.transport.Deliver(ctx, msg)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.Code == CodeMissingSender {
			log.Error("mail transport has no sender address", logger.Err(err))
			metrics.MailSendFailed(string(ReasonMissingSender))
			me := MissingSenderError()
			me.Err = err
			return me
		}
		log.Error("mail transport failed", logger.Err(err))
		metrics.MailSendFailed(string(ReasonSendFailed))
		return &MailError{Reason: ReasonSendFailed, Detail: fallback, Err: err}
	}
	if !ok {
		log.Warn("mail transport reported failure without error")
		metrics.MailSendFailed(string(ReasonSendFailed))
		return &MailError{Reason: ReasonSendFailed, Detail: fallback}
	}

	metrics.MailSent()
	log.Info("email sent", logger.String("subject", msg.Subject()))
	return nil
}
