// Package recovery orquesta los dos flujos de recuperación de cuenta:
// pedir un reset (mail con link + código) y confirmarlo (mail con una
// contraseña nueva).
package recovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/recovery/internal/audit"
	"github.com/dropDatabas3/recovery/internal/email"
	"github.com/dropDatabas3/recovery/internal/i18n"
	"github.com/dropDatabas3/recovery/internal/metrics"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
	"github.com/dropDatabas3/recovery/internal/security/password"
	"github.com/dropDatabas3/recovery/internal/store"
)

const (
	ViewResetPassword = "emails.reset-password"
	ViewNewPassword   = "emails.new-password"

	FallbackResetKey    = "Sending the email containing the reset key failed. Please try again later or contact the administrator."
	FallbackNewPassword = "Sending the email containing the new password failed. Please try again later or contact the administrator."
)

// UserRepository es el store de usuarios y códigos de reset.
// SetNewPassword debe consumir el código de forma atómica.
type UserRepository interface {
	FindByLogin(ctx context.Context, login string) (store.User, error)
	FindByID(ctx context.Context, id int64) (store.User, error)
	IssueResetCode(ctx context.Context, u store.User) (string, error)
	CheckResetCode(ctx context.Context, u store.User, code string) (bool, error)
	SetNewPassword(ctx context.Context, u store.User, code, newPassword string) (bool, error)
}

// ThrottleService devuelve el estado de suspensión de una cuenta.
type ThrottleService interface {
	FindByUserID(ctx context.Context, userID int64) (store.Throttle, error)
}

// Sender entrega un mensaje o devuelve *email.MailError (lo implementa email.Notifier).
type Sender interface {
	Send(ctx context.Context, msg email.Message, fallback string) error
}

type Translator interface {
	T(key string) string
}

type PasswordGenerator interface {
	Generate() (string, error)
}

// Settings son los valores de configuración que entran en los mails.
type Settings struct {
	CMSName        string
	From           email.Recipient
	ResetURL       string // con {id} y {code}
	PasswordLength int
}

// Deps agrupa las dependencias del Service.
type Deps struct {
	Users      UserRepository
	Throttles  ThrottleService
	Notifier   Sender
	Settings   Settings
	Translator Translator
	Passwords  PasswordGenerator
	Clock      func() time.Time
}

// Service no guarda estado entre llamadas: cada flujo arma su propio Builder.
type Service struct {
	users     UserRepository
	throttles ThrottleService
	notifier  Sender
	settings  Settings
	tr        Translator
	passwords PasswordGenerator
	now       func() time.Time
}

func NewService(d Deps) *Service {
	if d.Settings.PasswordLength <= 0 {
		d.Settings.PasswordLength = 16
	}
	if d.Translator == nil {
		d.Translator = i18n.New("en")
	}
	if d.Passwords == nil {
		d.Passwords = password.NewGenerator(d.Settings.PasswordLength, password.Policy{MinLength: d.Settings.PasswordLength})
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Settings.From.Name == "" {
		d.Settings.From.Name = d.Settings.CMSName
	}
	return &Service{
		users:     d.Users,
		throttles: d.Throttles,
		notifier:  d.Notifier,
		settings:  d.Settings,
		tr:        d.Translator,
		passwords: d.Passwords,
		now:       d.Clock,
	}
}

// flow lleva el estado de una ejecución para logs y métricas.
type flow struct {
	ctx context.Context
	log *zap.Logger
	res Result
	now func() time.Time
}

func (s *Service) begin(ctx context.Context, name string) *flow {
	f := &flow{
		ctx: ctx,
		log: logger.From(ctx).With(logger.Component("PasswordReset"), logger.Flow(name)),
		res: Result{Flow: name, State: StateStart},
		now: s.now,
	}
	f.log.Debug("flow started")
	return f
}

func (f *flow) to(st State) {
	f.res.State = st
	f.log.Debug("flow transition", logger.State(string(st)))
}

// end cierra el flujo en st y cuenta el estado terminal.
func (f *flow) end(st State, err error) (Result, error) {
	f.to(st)
	f.res.Finished = f.now()
	metrics.FlowFinished(f.res.Flow, string(st))
	if err != nil {
		f.log.Info("flow finished with error", logger.State(string(st)), logger.String("kind", KindOf(err).String()), logger.Err(err))
	} else {
		f.log.Info("flow finished", logger.State(string(st)))
	}
	if ev, ok := auditEvent(f.res.Flow, st, err); ok {
		audit.Log(f.ctx, ev, logger.Flow(f.res.Flow), logger.UserID(f.res.UserID))
	}
	return f.res, err
}

// auditEvent decide qué terminales quedan en el log de auditoría. Un login
// desconocido no se audita: no hay cuenta a la que atribuirlo.
func auditEvent(flowName string, st State, err error) (audit.Event, bool) {
	switch {
	case st == StateSent && flowName == FlowRequestReset:
		return audit.EventResetRequested, true
	case st == StateSent && flowName == FlowConfirmReset:
		return audit.EventResetCompleted, true
	case st == StateRejected:
		return audit.EventResetRejected, true
	case flowName == FlowConfirmReset && KindOf(err) == KindResetFailed:
		return audit.EventResetFailed, true
	default:
		return "", false
	}
}

// RequestReset emite un código de reset para login y le manda el link por mail.
func (s *Service) RequestReset(ctx context.Context, login string) (Result, error) {
	f := s.begin(ctx, FlowRequestReset)

	user, err := s.users.FindByLogin(ctx, store.NormalizeLogin(login))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			f.log.Info("reset requested for unknown login", logger.Email(login))
			return f.end(StateFailed, ErrUserNotFound)
		}
		return f.end(StateFailed, fmt.Errorf("recovery: find user: %w", err))
	}
	f.res.UserID = user.ID
	f.log = f.log.With(logger.UserID(user.ID))
	f.to(StateUserResolved)

	if err := s.senderReady(); err != nil {
		return f.end(StateFailed, err)
	}
	code, err := s.users.IssueResetCode(ctx, user)
	if err != nil {
		return f.end(StateFailed, fmt.Errorf("recovery: issue reset code: %w", err))
	}
	f.to(StateCodeIssued)

	msg, err := s.compose(user, ViewResetPassword, map[string]any{
		"cms_name": s.settings.CMSName,
		"url":      s.resetURL(user.ID, code),
	})
	if err != nil {
		return f.end(StateFailed, err)
	}
	f.to(StateMessageComposed)

	if err := s.notifier.Send(ctx, msg, FallbackResetKey); err != nil {
		return f.end(StateFailed, err)
	}
	return f.end(StateSent, nil)
}

// ConfirmReset valida el código, levanta la suspensión, setea una contraseña
// nueva y la manda por mail.
func (s *Service) ConfirmReset(ctx context.Context, userID int64, code string) (Result, error) {
	f := s.begin(ctx, FlowConfirmReset)
	f.res.UserID = userID
	f.log = f.log.With(logger.UserID(userID))

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return f.end(StateFailed, ErrUserNotFound)
		}
		return f.end(StateFailed, fmt.Errorf("recovery: find user: %w", err))
	}
	f.to(StateUserResolved)

	ok, err := s.users.CheckResetCode(ctx, user, code)
	if err != nil {
		return f.end(StateFailed, fmt.Errorf("recovery: check reset code: %w", err))
	}
	if !ok {
		return f.end(StateRejected, ErrResetCodeInvalid)
	}
	f.to(StateCodeChecked)

	// Sin remitente no tocamos nada: el código sigue vigente para reintentar.
	if err := s.senderReady(); err != nil {
		return f.end(StateFailed, err)
	}
	throttle, err := s.throttles.FindByUserID(ctx, user.ID)
	if err != nil {
		return f.end(StateFailed, fmt.Errorf("recovery: find throttle: %w", err))
	}
	if err := throttle.Unsuspend(ctx); err != nil {
		return f.end(StateFailed, fmt.Errorf("recovery: unsuspend: %w", err))
	}
	f.to(StateUnsuspended)

	newPassword, err := s.passwords.Generate()
	if err != nil {
		return f.end(StateFailed, fmt.Errorf("recovery: generate password: %w", err))
	}
	applied, err := s.users.SetNewPassword(ctx, user, code, newPassword)
	if err != nil {
		return f.end(StateFailed, fmt.Errorf("recovery: set new password: %w", err))
	}
	if !applied {
		return f.end(StateFailed, ErrResetFailed)
	}
	f.to(StatePasswordIssued)

	msg, err := s.compose(user, ViewNewPassword, map[string]any{
		"new_password": newPassword,
	})
	if err != nil {
		return f.end(StateFailed, err)
	}
	f.to(StateMessageComposed)

	if err := s.notifier.Send(ctx, msg, FallbackNewPassword); err != nil {
		return f.end(StateFailed, err)
	}
	return f.end(StateSent, nil)
}

// senderReady devuelve el mismo MailError que daría el transporte si no hay
// remitente configurado. Los flujos lo chequean antes de emitir o consumir códigos.
func (s *Service) senderReady() error {
	if strings.TrimSpace(s.settings.From.Address) == "" {
		return email.MissingSenderError()
	}
	return nil
}

// compose arma el mensaje con un Builder nuevo por llamada.
func (s *Service) compose(user store.User, view string, data map[string]any) (email.Message, error) {
	if err := s.senderReady(); err != nil {
		return email.Message{}, err
	}
	b := email.NewBuilder()
	name := user.FullName()
	if name == "" {
		name = user.Email
	}
	if err := b.SetTo(email.Recipient{Address: user.Email, Name: name}); err != nil {
		return email.Message{}, err
	}
	if err := b.SetFrom(s.settings.From); err != nil {
		return email.Message{}, err
	}
	if err := b.SetSubject(s.subject()); err != nil {
		return email.Message{}, err
	}
	if err := b.SetData(data); err != nil {
		return email.Message{}, err
	}
	if err := b.SetView(view); err != nil {
		return email.Message{}, err
	}
	return b.Build()
}

func (s *Service) subject() string {
	return s.settings.CMSName + " | " + s.tr.T(i18n.KeyPasswordReset)
}

func (s *Service) resetURL(userID int64, code string) string {
	return strings.NewReplacer(
		"{id}", strconv.FormatInt(userID, 10),
		"{code}", url.PathEscape(code),
	).Replace(s.settings.ResetURL)
}
