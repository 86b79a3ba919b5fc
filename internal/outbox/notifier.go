package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/logger"
)

// LogNotifier writes promotions to the application log. Used when no webhook
// is configured.
type LogNotifier struct {
	log *log.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Service("notifier")}
}

// NotifyPromoted logs the promotion
func (n *LogNotifier) NotifyPromoted(ctx context.Context, fact *participation.Promotion) error {
	n.log.Info("User promoted from waitlist",
		"event_id", fact.EventID, "user_id", fact.UserID, "occurred_at", fact.OccurredAt)
	return nil
}

// WebhookNotifier POSTs promotions as JSON to an external endpoint
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given endpoint
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type promotedPayload struct {
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NotifyPromoted delivers the promotion to the webhook
func (n *WebhookNotifier) NotifyPromoted(ctx context.Context, fact *participation.Promotion) error {
	payload, err := json.Marshal(promotedPayload{
		Type:       "promoted",
		EventID:    fact.EventID.String(),
		UserID:     fact.UserID.String(),
		OccurredAt: fact.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode promotion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
