package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/notifyhub/supplytrack/internal/domain"
)

const whatsAppBaseURL = "https://wa.me/"

// WhatsAppLinkProvider does not deliver anything itself: it produces a
// click-to-chat deep link that an operator opens to send the message.
type WhatsAppLinkProvider struct{}

func NewWhatsAppLinkProvider() *WhatsAppLinkProvider { return &WhatsAppLinkProvider{} }

func (p *WhatsAppLinkProvider) Send(ctx context.Context, t domain.NotificationTarget) (domain.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SendResult{}, err
	}
	link := WhatsAppLink(t.Phone, t.Message)
	if link == "" {
		return domain.SendResult{Success: false, Error: domain.ErrInvalidAddress.Error()}, nil
	}
	return domain.SendResult{Success: true, Link: link}, nil
}

// WhatsAppLink builds a wa.me link for phone with a prefilled message.
// Returns "" when the phone number has no digits.
func WhatsAppLink(phone, message string) string {
	digits := DigitsOnly(phone)
	if digits == "" {
		return ""
	}
	link := whatsAppBaseURL + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}

// DigitsOnly strips formatting (spaces, dashes, parentheses, leading +) from a phone number.
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ Provider = (*WhatsAppLinkProvider)(nil)
