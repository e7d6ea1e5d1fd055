package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/notifyhub/supplytrack/internal/domain"
)

func TestWebhookProvider_Send(t *testing.T) {
	var got SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"messageId":"msg-42","status":"accepted"}`))
	}))
	defer srv.Close()

	p := NewWebhookProvider(srv.URL, time.Second)
	res, err := p.Send(context.Background(), domain.NotificationTarget{
		EntityID: "o-1", Channel: domain.ChannelEmail, Email: "ops@acme.test",
		Subject: "Overdue", Message: "Please update",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "msg-42", res.MessageID)
	assert.Equal(t, SendRequest{To: "ops@acme.test", Channel: "email", Subject: "Overdue", Content: "Please update"}, got)
}

func TestWebhookProvider_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewWebhookProvider(srv.URL, time.Second).Send(context.Background(), domain.NotificationTarget{Email: "a@b.test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestWebhookProvider_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"recipient suppressed"}`))
	}))
	defer srv.Close()

	res, err := NewWebhookProvider(srv.URL, time.Second).Send(context.Background(), domain.NotificationTarget{Email: "a@b.test"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "recipient suppressed", res.Error)
}

type fakeMailer struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeMailer) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

func TestSMTPProvider_Send(t *testing.T) {
	fm := &fakeMailer{}
	p := &SMTPProvider{client: fm, from: "tracker@buyer.test"}

	res, err := p.Send(context.Background(), domain.NotificationTarget{
		EntityID: "o-1", Email: "ops@acme.test", Subject: "PO-1 overdue", Message: "<p>late</p>",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.MessageID)

	require.Len(t, fm.sent, 1)
	rcpts, err := fm.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@acme.test"}, rcpts)
	assert.Equal(t, []string{"PO-1 overdue"}, fm.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestSMTPProvider_TransportError(t *testing.T) {
	p := &SMTPProvider{client: &fakeMailer{err: errors.New("421 too many connections")}, from: "tracker@buyer.test"}

	_, err := p.Send(context.Background(), domain.NotificationTarget{Email: "ops@acme.test", Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421 too many connections")
}

func TestNewSMTPProvider(t *testing.T) {
	p, err := NewSMTPProvider(SMTPConfig{Host: "localhost", Port: 2525, From: "a@b.test", Timeout: time.Second})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, mail.TypeTextHTML, contentType("  <html><body>x</body></html>"))
	assert.Equal(t, mail.TypeTextPlain, contentType("plain text"))
}

func TestWhatsAppLink(t *testing.T) {
	assert.Equal(t, "https://wa.me/905551234567?text=PO+late", WhatsAppLink("+90 (555) 123-45-67", "PO late"))
	assert.Equal(t, "https://wa.me/15550001", WhatsAppLink("1-555-0001", ""))
	assert.Equal(t, "", WhatsAppLink("n/a", "x"))

	res, err := NewWhatsAppLinkProvider().Send(context.Background(), domain.NotificationTarget{Phone: "+1 555 0001", Message: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "https://wa.me/15550001?text=hi", res.Link)

	res, err = NewWhatsAppLinkProvider().Send(context.Background(), domain.NotificationTarget{Phone: "none"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestFunc(t *testing.T) {
	var p Provider = Func(func(_ context.Context, tg domain.NotificationTarget) (domain.SendResult, error) {
		return domain.SendResult{Success: true, MessageID: tg.EntityID}, nil
	})
	res, err := p.Send(context.Background(), domain.NotificationTarget{EntityID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", res.MessageID)
}
