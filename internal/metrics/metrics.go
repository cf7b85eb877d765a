package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del servicio de recuperación. Viven en un paquete propio para que
// email, captcha, recovery y http las usen sin ciclos de imports.

var (
	FlowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recovery_flows_total",
		Help: "Flujos de recuperación terminados por flujo y estado final",
	}, []string{"flow", "state"})

	MailSendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_send_total",
		Help: "Envíos de mail por resultado y motivo de falla",
	}, []string{"result", "reason"})

	CaptchaVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "captcha_verifications_total",
		Help: "Verificaciones de captcha por resultado",
	}, []string{"outcome"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// FlowFinished cuenta un flujo terminado en state.
func FlowFinished(flow, state string) {
	FlowsTotal.WithLabelValues(flow, state).Inc()
}

// MailSent cuenta un envío exitoso.
func MailSent() {
	MailSendTotal.WithLabelValues("sent", "").Inc()
}

// MailSendFailed cuenta un envío fallido con su motivo.
func MailSendFailed(reason string) {
	MailSendTotal.WithLabelValues("failed", reason).Inc()
}

// CaptchaVerified cuenta una verificación (success|failed).
func CaptchaVerified(outcome string) {
	CaptchaVerificationsTotal.WithLabelValues(outcome).Inc()
}

// Register registra todas las métricas en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		FlowsTotal,
		MailSendTotal,
		CaptchaVerificationsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
