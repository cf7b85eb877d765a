package email

import (
	"errors"
	"fmt"
)

// ─── Errors ───

var (
	// ErrInvalidArgument: un setter del Builder recibió un valor con forma inválida.
	ErrInvalidArgument = errors.New("email: invalid argument")

	// ErrIncompleteMessage: Build() sin to/from/subject/view.
	ErrIncompleteMessage = errors.New("email: incomplete message")

	// ErrMail agrupa todas las fallas de envío; errors.Is(err, ErrMail) sobre un *MailError.
	ErrMail = errors.New("email: mail error")
)

// MissingSenderMessage es el texto que se expone tal cual cuando el transporte
// no tiene remitente configurado (bug de configuración, vale la pena mostrarlo).
const MissingSenderMessage = "Cannot send message without a sender address"

// Reason clasifica un MailError.
type Reason string

const (
	ReasonMissingSender Reason = "missing_sender"
	ReasonSendFailed    Reason = "send_failed"
)

// MailError es el único error que ve el caller de Notifier.Send.
// Detail es el mensaje apto para el usuario final.
type MailError struct {
	Reason Reason
	Detail string
	Err    error // causa original, solo para logs
}

func (e *MailError) Error() string { return e.Detail }

func (e *MailError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrMail).
func (e *MailError) Is(target error) bool { return target == ErrMail }

// ─── Transport errors ───

// Code es la clasificación que hace cada adapter de sus propias fallas.
type Code string

const (
	CodeMissingSender    Code = "missing_sender"
	CodeAuth             Code = "auth"
	CodeTLS              Code = "tls"
	CodeDial             Code = "dial"
	CodeTimeout          Code = "timeout"
	CodeRateLimited      Code = "rate_limited"
	CodeInvalidRecipient Code = "invalid_recipient"
	CodeRejected         Code = "rejected"
	CodeNetwork          Code = "network"
	CodeRender           Code = "render"
	CodeUnknown          Code = "unknown"
)

// TransportError lo devuelven los adapters (SMTP, SES, ...) ya clasificado,
// así el Notifier no depende del texto del error.
type TransportError struct {
	Code      Code
	Temporary bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("email transport (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("email transport (%s)", e.Code)
}

func (e *TransportError) Unwrap() error { return e.Err }

// errMissingSender es la falla canónica de remitente vacío.
func errMissingSender() *TransportError {
	return &TransportError{Code: CodeMissingSender, Err: errors.New(MissingSenderMessage)}
}

// MissingSenderError es el MailError que ve el caller cuando no hay remitente.
func MissingSenderError() *MailError {
	return &MailError{Reason: ReasonMissingSender, Detail: MissingSenderMessage, Err: errMissingSender()}
}
