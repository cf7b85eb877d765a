package recovery

import (
	"errors"

	"github.com/dropDatabas3/recovery/internal/email"
)

var (
	// ErrUserNotFound: ningún usuario con ese login / id.
	ErrUserNotFound = errors.New("recovery: user not found")

	// ErrResetCodeInvalid: el código no corresponde al usuario o expiró.
	ErrResetCodeInvalid = errors.New("recovery: password reset code invalid")

	// ErrResetFailed: el repositorio no aplicó la contraseña nueva
	// (típicamente porque otro confirm ya consumió el código).
	ErrResetFailed = errors.New("recovery: password reset failed")
)

// Kind clasifica el error de una operación para que el caller haga switch
// en vez de comparar errores uno por uno.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidArgument
	KindIncompleteMessage
	KindUserNotFound
	KindResetCodeInvalid
	KindResetFailed
	KindMail
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindIncompleteMessage:
		return "incomplete_message"
	case KindUserNotFound:
		return "user_not_found"
	case KindResetCodeInvalid:
		return "reset_code_invalid"
	case KindResetFailed:
		return "reset_failed"
	case KindMail:
		return "mail"
	default:
		return "internal"
	}
}

// KindOf devuelve la clase de err (KindNone si err es nil).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrResetCodeInvalid):
		return KindResetCodeInvalid
	case errors.Is(err, ErrResetFailed):
		return KindResetFailed
	case errors.Is(err, email.ErrMail):
		return KindMail
	case errors.Is(err, email.ErrIncompleteMessage):
		return KindIncompleteMessage
	case errors.Is(err, email.ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}
