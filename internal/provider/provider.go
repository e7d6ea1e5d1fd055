package provider

import (
	"context"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// SendRequest is the JSON body posted to an HTTP email provider.
type SendRequest struct {
	To      string `json:"to"`
	Channel string `json:"channel"`
	Subject string `json:"subject,omitempty"`
	Content string `json:"content"`
}

// SendResponse maps the provider's 202 Accepted response body.
type SendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Provider delivers one notification to one target. Implementations own their
// timeouts: a call must return rather than hang, because the dispatcher sends
// sequentially and a stuck call stalls the batch.
//
// A returned error and a result with Success=false are both treated as a
// failed delivery.
type Provider interface {
	Send(ctx context.Context, t domain.NotificationTarget) (domain.SendResult, error)
}

// Func adapts a plain function to Provider.
type Func func(ctx context.Context, t domain.NotificationTarget) (domain.SendResult, error)

func (f Func) Send(ctx context.Context, t domain.NotificationTarget) (domain.SendResult, error) {
	return f(ctx, t)
}
