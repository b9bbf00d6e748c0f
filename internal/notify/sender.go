// Package notify tells the parties of an agreement, by e-mail, about the events that
// need their attention. Delivery is asynchronous and best effort: a lost notification
// never affects the ledger.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/logger"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	logger.ExternalServiceCall("SendGrid", "Send", "to", msg.To, "subject", msg.Subject)
	response, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		logger.ExternalServiceResult("SendGrid", "Send", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("SendGrid", "Send", err)
		return err
	}
	logger.ExternalServiceResult("SendGrid", "Send", nil, "status", response.StatusCode)
	return nil
}

func (s *SendGridSender) build(msg Message) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	return mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "<pre>"+html.EscapeString(msg.Body)+"</pre>")
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "Notification", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewSender picks the delivery backend from configuration.
func NewSender(cfg config.NotifyConfig) Sender {
	if cfg.Provider == "sendgrid" {
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName)
	}
	return LogSender{}
}
