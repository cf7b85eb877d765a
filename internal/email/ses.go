package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
)

// SESConfig: región y credenciales estáticas. Sin credenciales se usa la
// cadena default del SDK (env, perfil, rol de la instancia).
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

// sesAPI es el subconjunto de *sesv2.Client que usamos.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport entrega mensajes con AWS SES v2.
type SESTransport struct {
	client   sesAPI
	renderer Renderer
}

// NewSESTransport carga la config de AWS y crea el cliente.
func NewSESTransport(ctx context.Context, cfg SESConfig, r Renderer) (*SESTransport, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return &SESTransport{client: sesv2.NewFromConfig(awsCfg), renderer: r}, nil
}

// Deliver renderiza y envía con SendEmail (contenido simple).
func (s *SESTransport) Deliver(ctx context.Context, msg Message) (bool, error) {
	from := msg.From()
	if strings.TrimSpace(from.Address) == "" {
		return false, errMissingSender()
	}

	body, err := s.renderer.Render(msg.View(), msg.Data())
	if err != nil {
		return false, &TransportError{Code: CodeRender, Err: err}
	}

	content := &types.Body{}
	if body.HTML != "" {
		content.Html = &types.Content{Data: aws.String(body.HTML), Charset: aws.String("UTF-8")}
	}
	if body.Text != "" {
		content.Text = &types.Content{Data: aws.String(body.Text), Charset: aws.String("UTF-8")}
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from.String()),
		Destination:      &types.Destination{ToAddresses: []string{msg.To().String()}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject()), Charset: aws.String("UTF-8")},
				Body:    content,
			},
		},
	}

	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		return false, classifySES(err)
	}
	id := ""
	if out != nil && out.MessageId != nil {
		id = *out.MessageId
	}
	logger.From(ctx).Debug("ses accepted message",
		logger.Component("SESTransport"),
		logger.String("message_id", id),
	)
	return true, nil
}

// classifySES traduce los errores tipados del SDK; el resto va por Diagnose.
func classifySES(err error) *TransportError {
	var (
		throttled *types.TooManyRequestsException
		limit     *types.LimitExceededException
		rejected  *types.MessageRejected
		notVerif  *types.MailFromDomainNotVerifiedException
		badReq    *types.BadRequestException
	)
	switch {
	case errors.As(err, &throttled), errors.As(err, &limit):
		return &TransportError{Code: CodeRateLimited, Temporary: true, Err: err}
	case errors.As(err, &rejected), errors.As(err, &notVerif):
		return &TransportError{Code: CodeRejected, Err: err}
	case errors.As(err, &badReq):
		return &TransportError{Code: CodeInvalidRecipient, Err: err}
	}
	return classify(err)
}
