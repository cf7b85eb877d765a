// Package captcha decide si quien pide un reset es humano.
//
// Verifier nunca devuelve error: cualquier problema con el proveedor cuenta
// como fallo. El "pase" se devuelve como valor (PassedAt) y el caller lo
// guarda en su sesión (ver PassStore).
package captcha

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/recovery/internal/metrics"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
)

// Outcome es el resultado de una verificación.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSuccess
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failed"
}

// Verification es lo que devuelve Verify. PassedAt sólo es no-nil si Verified.
type Verification struct {
	Token    string
	Verified bool
	PassedAt *time.Time
}

func (v Verification) Outcome() Outcome {
	if v.Verified {
		return OutcomeSuccess
	}
	return OutcomeFailed
}

// Response es la respuesta del proveedor (formato siteverify).
type Response struct {
	Success     bool      `json:"success"`
	Score       float64   `json:"score,omitempty"`  // v3
	Action      string    `json:"action,omitempty"` // v3
	ChallengeTS time.Time `json:"challenge_ts"`
	Hostname    string    `json:"hostname"`
	ErrorCodes  []string  `json:"error-codes,omitempty"`
}

// Provider consulta al servicio externo de captcha.
type Provider interface {
	Check(ctx context.Context, token, remoteIP string) (Response, error)
}

// Options son los chequeos extra sobre una respuesta success=true.
type Options struct {
	MinScore         float64 // sólo se aplica si el proveedor devuelve score
	ExpectedHostname string
	ExpectedAction   string
}

// Verifier valida tokens contra un Provider.
type Verifier struct {
	provider Provider
	opts     Options
	now      func() time.Time
}

// NewVerifier crea el verifier; now nil = time.Now.
func NewVerifier(p Provider, opts Options, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{provider: p, opts: opts, now: now}
}

// Verify equivale a VerifyFrom sin IP remota.
func (v *Verifier) Verify(ctx context.Context, token string) Verification {
	return v.VerifyFrom(ctx, token, "")
}

// VerifyFrom verifica token. Falla cerrado ante cualquier error o respuesta dudosa.
func (v *Verifier) VerifyFrom(ctx context.Context, token, remoteIP string) Verification {
	log := logger.From(ctx).With(logger.Component("CaptchaVerifier"))
	out := Verification{Token: token}

	if strings.TrimSpace(token) == "" {
		log.Debug("captcha rejected", logger.String("reason", "empty token"))
		metrics.CaptchaVerified(OutcomeFailed.String())
		return out
	}

	resp, err := v.provider.Check(ctx, token, remoteIP)
	if err != nil {
		log.Warn("captcha provider failed", logger.Err(err))
		metrics.CaptchaVerified(OutcomeFailed.String())
		return out
	}
	if reason := v.reject(resp); reason != "" {
		log.Info("captcha rejected", logger.String("reason", reason), logger.Any("error_codes", resp.ErrorCodes))
		metrics.CaptchaVerified(OutcomeFailed.String())
		return out
	}

	at := v.now()
	out.Verified = true
	out.PassedAt = &at
	log.Debug("captcha passed")
	metrics.CaptchaVerified(OutcomeSuccess.String())
	return out
}

func (v *Verifier) reject(r Response) string {
	if !r.Success {
		return "provider returned success=false"
	}
	if r.Score > 0 && r.Score < v.opts.MinScore {
		return fmt.Sprintf("score too low: %.2f (minimum: %.2f)", r.Score, v.opts.MinScore)
	}
	if v.opts.ExpectedHostname != "" && !strings.EqualFold(r.Hostname, v.opts.ExpectedHostname) {
		return "hostname mismatch"
	}
	if v.opts.ExpectedAction != "" && r.Action != v.opts.ExpectedAction {
		return "action mismatch"
	}
	return ""
}

// SkipProvider aprueba todo. Sólo para dev (captcha.skip_verify); config lo
// rechaza en prod.
type SkipProvider struct{}

func (SkipProvider) Check(context.Context, string, string) (Response, error) {
	return Response{Success: true, Score: 1.0}, nil
}
