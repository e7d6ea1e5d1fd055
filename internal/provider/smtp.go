package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// SMTPConfig holds the connection settings of the shared mail credential.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// mailSender is the subset of *mail.Client used by SMTPProvider.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPProvider sends email through one SMTP account. Every send opens its own
// session, so the provider holds no connection state between targets.
type SMTPProvider struct {
	client mailSender
	from   string
}

func NewSMTPProvider(cfg SMTPConfig) (*SMTPProvider, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPProvider{client: c, from: cfg.From}, nil
}

func (p *SMTPProvider) Send(ctx context.Context, t domain.NotificationTarget) (domain.SendResult, error) {
	msg := mail.NewMsg()
	if err := msg.From(p.from); err != nil {
		return domain.SendResult{}, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(t.Email); err != nil {
		return domain.SendResult{}, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(t.Subject)
	msg.SetMessageID()
	msg.SetBodyString(contentType(t.Message), t.Message)

	if err := p.client.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.SendResult{}, fmt.Errorf("smtp send: %w", err)
	}
	return domain.SendResult{Success: true, MessageID: msg.GetMessageID()}, nil
}

// contentType guesses HTML payloads from their leading tag.
func contentType(body string) mail.ContentType {
	if strings.HasPrefix(strings.TrimSpace(body), "<") {
		return mail.TypeTextHTML
	}
	return mail.TypeTextPlain
}

var _ Provider = (*SMTPProvider)(nil)
