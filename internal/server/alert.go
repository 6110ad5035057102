package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"roomwatch.dev/roomwatch/pkg/metrics"
	"roomwatch.dev/roomwatch/pkg/mq"
)

// Notification types published on the alert queue.
const (
	NotificationBuzzer     = "buzzer"
	NotificationModeChange = "mode_change"
)

// Publishing an alert must never stall a request; the push gets a short
// deadline and failures are logged rather than surfaced.
const alertPublishTimeout = 2 * time.Second

// Notification is the message published on the alert queue for an
// external notifier to fan out to registered push tokens.
type Notification struct {
	Type   string    `json:"type"`
	InRoom *bool     `json:"inRoom,omitempty"`
	At     time.Time `json:"at"`
}

// Alerter fires alerts: a structured log emission plus a best-effort
// publication to the alert queue. Every call is independent; there is no
// debounce and no persisted record of having fired.
type Alerter struct {
	logger    *slog.Logger
	publisher mq.ClientInterface     // nil when no broker is configured
	metrics   *metrics.ServerMetrics // Optional metrics
}

// NewAlerter creates an Alerter. The publisher may be nil, in which case
// alerts are log-only.
func NewAlerter(logger *slog.Logger, publisher mq.ClientInterface) *Alerter {
	return &Alerter{
		logger:    logger,
		publisher: publisher,
	}
}

// SetMetrics sets the metrics collector for this alerter.
func (a *Alerter) SetMetrics(m *metrics.ServerMetrics) {
	a.metrics = m
}

// TriggerBuzzer signals an immediate buzzer activation.
func (a *Alerter) TriggerBuzzer(ctx context.Context) {
	a.logger.Info("buzzer activated")
	a.publish(ctx, Notification{
		Type: NotificationBuzzer,
		At:   time.Now().UTC(),
	})
}

// NotifyModeChange publishes a presence-mode transition.
func (a *Alerter) NotifyModeChange(ctx context.Context, inRoom bool) {
	a.logger.Info("presence mode changed", "in_room", inRoom)
	a.publish(ctx, Notification{
		Type:   NotificationModeChange,
		InRoom: &inRoom,
		At:     time.Now().UTC(),
	})
}

// publish pushes the notification to the alert queue. Failures are logged
// and swallowed so the triggering request still succeeds.
func (a *Alerter) publish(ctx context.Context, n Notification) {
	if a.metrics != nil {
		a.metrics.AlertsTriggered.WithLabelValues(n.Type).Inc()
	}

	if a.publisher == nil {
		return
	}

	body, err := json.Marshal(n)
	if err != nil {
		a.logger.Error("failed to marshal notification", "type", n.Type, "error", err)
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, alertPublishTimeout)
	defer cancel()

	if err := a.publisher.Push(pushCtx, body); err != nil {
		a.logger.Error("failed to publish notification", "type", n.Type, "error", err)
	}
}
