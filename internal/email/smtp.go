package email

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/dropDatabas3/recovery/internal/observability/logger"
	mail "github.com/go-mail/mail"
)

// SMTPConfig son los datos de conexión del servidor SMTP.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// mailDialer es lo único que usamos de *mail.Dialer; en tests se reemplaza.
type mailDialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPTransport entrega mensajes por SMTP con go-mail.
type SMTPTransport struct {
	cfg      SMTPConfig
	renderer Renderer
	dialer   mailDialer
}

// NewSMTPTransport arma el transporte y su dialer.
func NewSMTPTransport(cfg SMTPConfig, r Renderer) *SMTPTransport {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify, // solo dev
	}
	switch cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// "auto": go-mail negocia STARTTLS si el server lo ofrece
	}
	return &SMTPTransport{cfg: cfg, renderer: r, dialer: d}
}

// Deliver renderiza la vista y envía multipart txt + html.
func (s *SMTPTransport) Deliver(ctx context.Context, msg Message) (bool, error) {
	log := logger.From(ctx).With(
		logger.Component("SMTPTransport"),
		logger.String("host", s.cfg.Host),
		logger.Int("port", s.cfg.Port),
	)

	from := msg.From()
	if strings.TrimSpace(from.Address) == "" {
		return false, errMissingSender()
	}
	if err := ctx.Err(); err != nil {
		return false, classify(err)
	}

	body, err := s.renderer.Render(msg.View(), msg.Data())
	if err != nil {
		return false, &TransportError{Code: CodeRender, Err: err}
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", from.Address, from.Name)
	m.SetAddressHeader("To", msg.To().Address, msg.To().Name)
	m.SetHeader("Subject", msg.Subject())

	// Preferimos multipart/alternative (txt + html)
	if body.Text != "" {
		m.SetBody("text/plain", body.Text)
	}
	if body.HTML != "" {
		if body.Text == "" {
			m.SetBody("text/html", body.HTML)
		} else {
			m.AddAlternative("text/html", body.HTML)
		}
	}

	log.Debug("sending email", logger.String("subject", msg.Subject()), logger.String("tls_mode", s.cfg.TLSMode))
	if err := s.dialer.DialAndSend(m); err != nil {
		te := classify(err)
		log.Warn("smtp send failed", logger.String("code", string(te.Code)), logger.Bool("temporary", te.Temporary), logger.Err(err))
		return false, te
	}
	return true, nil
}
