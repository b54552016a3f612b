package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	appErrors "modnotifier/internal/errors"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookSink posts messages to a Slack-compatible incoming webhook.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a sink posting to url. A nil client gets a pooled
// client with a short timeout.
func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = defaultWebhookTimeout
	}
	return &WebhookSink{url: strings.TrimSpace(url), client: client}
}

type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

// Post implements Sink.
func (s *WebhookSink) Post(ctx context.Context, msg Message) error {
	if s.url == "" {
		return appErrors.New(appErrors.CodeConfigurationError, "webhook url is not configured", nil)
	}
	body, err := json.Marshal(webhookPayload{Text: PlainText(msg), Username: msg.Speaker})
	if err != nil {
		return appErrors.New(appErrors.CodeNotifyFailed, "encode webhook payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return appErrors.New(appErrors.CodeNotifyFailed, "create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return appErrors.New(appErrors.CodeNotifyFailed, "post webhook", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return appErrors.New(appErrors.CodeNotifyFailed, fmt.Sprintf("webhook returned status %d", resp.StatusCode), nil)
	}
	return nil
}
