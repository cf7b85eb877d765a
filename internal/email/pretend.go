package email

import (
	"context"
	"sync"

	"github.com/dropDatabas3/recovery/internal/observability/logger"
)

// PretendTransport no envía nada: loguea el destinatario y guarda el mensaje.
// Es el driver por default en dev y el que usan los tests de integración.
type PretendTransport struct {
	mu   sync.Mutex
	sent []Message
}

func NewPretendTransport() *PretendTransport { return &PretendTransport{} }

func (p *PretendTransport) Deliver(ctx context.Context, msg Message) (bool, error) {
	logger.From(ctx).Info("Pretending to mail message to: "+msg.To().Address,
		logger.Component("PretendTransport"),
		logger.String("subject", msg.Subject()),
	)
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()
	return true, nil
}

// Sent devuelve una copia de los mensajes "enviados".
func (p *PretendTransport) Sent() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}

// Last devuelve el último mensaje, si hubo alguno.
func (p *PretendTransport) Last() (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) == 0 {
		return Message{}, false
	}
	return p.sent[len(p.sent)-1], true
}
