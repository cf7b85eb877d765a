package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/recovery/internal/captcha"
	"github.com/dropDatabas3/recovery/internal/http/dto"
	httperrors "github.com/dropDatabas3/recovery/internal/http/errors"
	"github.com/dropDatabas3/recovery/internal/http/helpers"
	mw "github.com/dropDatabas3/recovery/internal/http/middlewares"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
)

// CaptchaVerifier es lo que necesita el controller del captcha.Verifier.
type CaptchaVerifier interface {
	VerifyFrom(ctx context.Context, token, remoteIP string) captcha.Verification
}

// PassRecorder guarda el pase del captcha en la sesión.
type PassRecorder interface {
	Record(ctx context.Context, sid string, v captcha.Verification, window time.Duration) error
}

// CaptchaController atiende POST /captcha/verify.
type CaptchaController struct {
	verifier CaptchaVerifier
	passes   PassRecorder
	window   time.Duration
}

func NewCaptchaController(v CaptchaVerifier, p PassRecorder, window time.Duration) *CaptchaController {
	return &CaptchaController{verifier: v, passes: p, window: window}
}

// Verify valida el token y, si pasa, registra el pase para la sesión actual.
// Siempre responde 200 con el resultado; sólo un body roto es error.
func (c *CaptchaController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CaptchaController.Verify"))

	var req dto.CaptchaVerifyRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	v := c.verifier.VerifyFrom(ctx, strings.TrimSpace(req.Token), helpers.ClientIP(r))
	if v.Verified {
		sid := mw.GetSessionID(ctx)
		if err := c.passes.Record(ctx, sid, v, c.window); err != nil {
			log.Error("could not record captcha pass", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
			return
		}
	}

	log.Debug("captcha checked", logger.Outcome(v.Outcome().String()))
	helpers.WriteJSON(w, http.StatusOK, dto.CaptchaVerifyResponse{Result: v.Outcome().String()})
}
