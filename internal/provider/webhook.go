package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// WebhookProvider delivers email through a transactional-email HTTP API.
// The base URL is injected from config so tests can point to a local mock.
type WebhookProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewWebhookProvider(baseURL string, timeout time.Duration) *WebhookProvider {
	return &WebhookProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts the target to the configured URL and expects 202 Accepted with
// a JSON body containing messageId.
func (p *WebhookProvider) Send(ctx context.Context, t domain.NotificationTarget) (domain.SendResult, error) {
	body, err := json.Marshal(SendRequest{
		To:      t.Address(),
		Channel: string(t.Channel),
		Subject: t.Subject,
		Content: t.Message,
	})
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// A 4xx other than 429 is a verdict on this message; anything else
	// unexpected is a transport failure.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		var rejection struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&rejection)
		if rejection.Error == "" {
			rejection.Error = fmt.Sprintf("provider rejected the message: %d", resp.StatusCode)
		}
		return domain.SendResult{Success: false, Error: rejection.Error}, nil
	}
	if resp.StatusCode != http.StatusAccepted {
		return domain.SendResult{}, fmt.Errorf("unexpected provider status: %d", resp.StatusCode)
	}

	var sendResp SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil {
		return domain.SendResult{}, fmt.Errorf("decode response: %w", err)
	}

	return domain.SendResult{Success: true, MessageID: sendResp.MessageID}, nil
}

var _ Provider = (*WebhookProvider)(nil)
