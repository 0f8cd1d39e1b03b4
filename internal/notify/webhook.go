// internal/notify/webhook.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Webhook posts alerts as JSON {"text": "..."}; Slack and Discord-compatible relays accept it.
type Webhook struct {
	url    string
	client *resty.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: resty.New().SetTimeout(timeout),
	}
}

func (w *Webhook) Notify(ctx context.Context, message string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": message, "content": message}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook post: http %d", resp.StatusCode())
	}
	return nil
}
