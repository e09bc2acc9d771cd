package email

import (
	"context"

	"go.uber.org/zap"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...Attachment) error
}

// NoOpProvider is used when SMTP is not configured. Messages are logged and dropped.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	p.log.Info("email dropped, smtp not configured",
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...Attachment) error {
	body, subject, err := renderTemplate(templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, Message{To: to, Subject: subject, HTMLBody: body, Attachments: attachments})
}
