// Package notify delivers safety alerts to parents and emergency contacts.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"guardian/internal/safety"
	"guardian/pkg/platform/circuit"
)

// alertPayload is the wire shape POSTed to the notification channel.
type alertPayload struct {
	EventID         string    `json:"event_id"`
	ChildID         string    `json:"child_id"`
	EventType       string    `json:"event_type"`
	Severity        string    `json:"severity"`
	Description     string    `json:"description"`
	ActionTaken     string    `json:"action_taken"`
	OccurredAt      time.Time `json:"occurred_at"`
	EmergencyCopies []string  `json:"emergency_copies,omitempty"`
}

// WebhookNotifier POSTs alerts to the configured notification endpoint. The
// endpoint fans out to the parent's registered channels; critical events also
// carry the policy's emergency contact addresses.
type WebhookNotifier struct {
	url       string
	emergency []string
	client    *http.Client
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

// Option configures a WebhookNotifier.
type Option func(*WebhookNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

// WithEmergencyContacts sets the addresses copied on critical alerts.
func WithEmergencyContacts(addresses []string) Option {
	return func(n *WebhookNotifier) { n.emergency = addresses }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *WebhookNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewWebhook creates a notifier targeting the given endpoint.
func NewWebhook(url string, opts ...Option) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("notification endpoint url is required")
	}
	n := &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.New("parent-notify", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify delivers one alert. An open circuit fails fast so the bus's retry
// and dead-letter handling take over without waiting on a dead endpoint.
func (n *WebhookNotifier) Notify(ctx context.Context, event *safety.Event) error {
	if n.breaker.IsOpen() {
		return fmt.Errorf("notification channel %s unavailable", n.breaker.Name())
	}

	payload := alertPayload{
		EventID:     event.ID.String(),
		ChildID:     event.ChildID.String(),
		EventType:   string(event.Type),
		Severity:    string(event.Severity),
		Description: event.Description,
		ActionTaken: event.ActionTaken,
		OccurredAt:  event.Timestamp,
	}
	if event.Severity == safety.SeverityCritical {
		payload.EmergencyCopies = n.emergency
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.recordFailure(ctx)
		return fmt.Errorf("deliver alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.recordFailure(ctx)
		return fmt.Errorf("deliver alert: endpoint returned %d", resp.StatusCode)
	}

	if _, change := n.breaker.RecordSuccess(); change.Closed {
		n.logger.InfoContext(ctx, "notification channel recovered", "channel", n.breaker.Name())
	}
	return nil
}

func (n *WebhookNotifier) recordFailure(ctx context.Context) {
	if _, change := n.breaker.RecordFailure(); change.Opened {
		n.logger.WarnContext(ctx, "notification channel circuit opened", "channel", n.breaker.Name())
	}
}

// LogNotifier writes alerts to the log. Used in development when no
// notification endpoint is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event *safety.Event) error {
	n.logger.InfoContext(ctx, "parent alert",
		"event_id", event.ID,
		"child_id", event.ChildID,
		"event_type", event.Type,
		"severity", event.Severity,
		"description", event.Description,
	)
	return nil
}
