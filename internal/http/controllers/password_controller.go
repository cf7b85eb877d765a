package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/recovery/internal/http/dto"
	httperrors "github.com/dropDatabas3/recovery/internal/http/errors"
	"github.com/dropDatabas3/recovery/internal/http/helpers"
	mw "github.com/dropDatabas3/recovery/internal/http/middlewares"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
	"github.com/dropDatabas3/recovery/internal/recovery"
)

// ResetService es el subconjunto de recovery.Service que usa el controller.
type ResetService interface {
	RequestReset(ctx context.Context, login string) (recovery.Result, error)
	ConfirmReset(ctx context.Context, userID int64, code string) (recovery.Result, error)
}

// PassChecker responde si la sesión pasó el captcha hace poco.
type PassChecker interface {
	PassedWithin(ctx context.Context, sid string, window time.Duration, now time.Time) (bool, error)
}

// PasswordController atiende los dos pasos del reset.
type PasswordController struct {
	service ResetService
	passes  PassChecker
	window  time.Duration
	now     func() time.Time
}

func NewPasswordController(s ResetService, p PassChecker, window time.Duration, now func() time.Time) *PasswordController {
	if now == nil {
		now = time.Now
	}
	return &PasswordController{service: s, passes: p, window: window, now: now}
}

// RequestReset: POST /password/reset {email}. Requiere captcha dentro de la ventana.
func (c *PasswordController) RequestReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasswordController.RequestReset"))

	var req dto.ResetRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	login := strings.TrimSpace(req.Email)
	if login == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email is required"))
		return
	}

	ok, err := c.passes.PassedWithin(ctx, mw.GetSessionID(ctx), c.window, c.now())
	if err != nil {
		log.Error("could not read captcha pass", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	if !ok {
		httperrors.WriteError(w, httperrors.ErrCaptchaRequired)
		return
	}

	res, err := c.service.RequestReset(ctx, login)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromRecovery(err))
		return
	}
	helpers.WriteJSON(w, http.StatusAccepted, dto.ResetResponse{Status: string(res.State), Flow: res.Flow})
}

// ConfirmReset: GET /password/reset/{id}/{code}, el link del mail.
func (c *PasswordController) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("id must be a positive integer"))
		return
	}
	code := chi.URLParam(r, "code")
	if strings.TrimSpace(code) == "" {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("code is required"))
		return
	}

	res, err := c.service.ConfirmReset(ctx, id, code)
	if err != nil {
		httperrors.WriteError(w, httperrors.FromRecovery(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ResetResponse{Status: string(res.State), Flow: res.Flow})
}
