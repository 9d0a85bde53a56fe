package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type NotificationType string

const (
	NotifyPayAppSubmitted    NotificationType = "pay_app_submitted"
	NotifyPayAppApproved     NotificationType = "pay_app_approved"
	NotifyPayAppFullySigned  NotificationType = "pay_app_fully_signed"
	NotifySignatureRequested NotificationType = "signature_requested"
	NotifySignatureReminder  NotificationType = "signature_reminder"
)

type NotificationIntent struct {
	Type      NotificationType `json:"type"`
	Recipient string           `json:"recipient,omitempty"`
	Payload   map[string]any   `json:"payload"`
}

// Notifier is the external delivery collaborator. This core only decides
// when to notify and with what payload; delivery failures never fail the
// originating mutation.
type Notifier interface {
	Notify(ctx context.Context, intent NotificationIntent) error
}

// WebhookNotifier posts intents to the notification channel's webhook. Each
// dispatch is bounded by the client timeout so a slow channel cannot stall a
// lifecycle operation.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, intent NotificationIntent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier drops intents; used when no webhook is configured.
type NopNotifier struct {
	log zerolog.Logger
}

func NewNopNotifier(log zerolog.Logger) *NopNotifier {
	return &NopNotifier{log: log}
}

func (n *NopNotifier) Notify(_ context.Context, intent NotificationIntent) error {
	n.log.Debug().Str("type", string(intent.Type)).Msg("notification intent dropped (no webhook configured)")
	return nil
}
