package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/recovery/internal/email"
	"github.com/dropDatabas3/recovery/internal/recovery"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe err como JSON con el status que corresponda.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// FromRecovery traduce un error del servicio de recuperación. El MailError
// viaja en Detail porque su texto ya es apto para el usuario.
func FromRecovery(err error) *AppError {
	switch recovery.KindOf(err) {
	case recovery.KindUserNotFound:
		return ErrUserNotFound.WithCause(err)
	case recovery.KindResetCodeInvalid:
		return ErrResetCodeInvalid.WithCause(err)
	case recovery.KindResetFailed:
		return ErrResetFailed.WithCause(err)
	case recovery.KindMail:
		detail := err.Error()
		var me *email.MailError
		if stderrors.As(err, &me) {
			detail = me.Detail
		}
		return ErrMail.WithDetail(detail).WithCause(err)
	case recovery.KindInvalidArgument:
		return ErrBadRequest.WithCause(err)
	default:
		return ErrInternalServerError.WithCause(err)
	}
}
