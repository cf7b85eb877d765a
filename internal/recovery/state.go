package recovery

import "time"

// State es el paso en el que quedó un flujo.
type State string

const (
	StateStart           State = "start"
	StateUserResolved    State = "user_resolved"
	StateCodeIssued      State = "code_issued"
	StateCodeChecked     State = "code_checked"
	StateUnsuspended     State = "unsuspended"
	StateRejected        State = "rejected"
	StatePasswordIssued  State = "password_issued"
	StateMessageComposed State = "message_composed"
	StateSent            State = "sent"
	StateFailed          State = "failed"
)

// Nombres de flujo para logs y métricas.
const (
	FlowRequestReset = "request_reset"
	FlowConfirmReset = "confirm_reset"
)

// Result describe cómo terminó un flujo. Sirve para observabilidad; el
// resultado de negocio es el error.
type Result struct {
	Flow     string
	State    State
	UserID   int64
	Finished time.Time
}
