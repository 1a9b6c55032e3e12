package notify

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
)

// Webhook posts notifications as JSON to an URL.
type Webhook struct {
	client *req.Client
	url    string
}

func NewWebhook(url, token string) *Webhook {
	client := req.C().
		SetUserAgent("assetwatch").
		SetCommonContentType("application/json")
	if token != "" {
		client.SetCommonBearerAuthToken(token)
	}
	return &Webhook{client: client, url: url}
}

func (w *Webhook) Notify(ctx context.Context, message, title string, opts Options) error {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(NewNotification(message, title, opts)).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if resp.IsErrorState() {
		return fmt.Errorf("webhook: unexpected status %s", resp.Status)
	}
	return nil
}
