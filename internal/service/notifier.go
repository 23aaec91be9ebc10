package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"pistachio-backend/internal/logger"
)

// Message is a plain e-mail to one recipient.
type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type sendGridNotifier struct {
	fromEmail string
	fromName  string
	send      func(ctx context.Context, m *mail.SGMailV3) (int, string, error)
}

// NewSendGridNotifier sends mail through the SendGrid v3 API.
func NewSendGridNotifier(apiKey, fromEmail, fromName string) Notifier {
	client := sendgrid.NewSendClient(apiKey)
	return &sendGridNotifier{
		fromEmail: fromEmail,
		fromName:  fromName,
		send: func(ctx context.Context, m *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, m)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (n *sendGridNotifier) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	logger.ExternalServiceCall("sendgrid", "send", "to", msg.To, "subject", msg.Subject)
	status, body, err := n.send(ctx, m)
	if err == nil && status >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", status, body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", msg.To, "status", status)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logNotifier struct{}

// NewLogNotifier only logs messages. Used when no mail provider is configured.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "Email not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
