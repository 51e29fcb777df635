// Package notify delivers urgent-case notices to the care team outside the
// database, via an optional webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"patientcare-agent/pkg"
)

// Webhook POSTs severe-case notifications to a configured URL. When no URL
// is configured, or delivery fails, the notice is surfaced through a
// high-severity log entry instead. Delivery is best-effort by design: the
// durable doctor_mailbox row is the system of record, this channel only
// shortens the time to a doctor's attention.
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhook constructs a Webhook notifier. url may be empty, in which case
// only the log fallback is used. timeout bounds each delivery attempt.
func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// NotifySevere delivers one notification. Errors are logged, never
// returned: a notification failure must not fail the routing of the record
// that produced it.
func (w *Webhook) NotifySevere(ctx context.Context, n *pkg.MailboxNotification) {
	if w.url == "" {
		w.fallback(n)
		return
	}
	if err := w.post(ctx, n); err != nil {
		w.logger.Error("severe-case webhook delivery failed", zap.Error(err))
		w.fallback(n)
		return
	}
	w.logger.Info("severe-case notification delivered",
		zap.Int64("patient_id", n.PatientID),
	)
}

func (w *Webhook) post(ctx context.Context, n *pkg.MailboxNotification) error {
	payload := map[string]any{
		"patient_id":       n.PatientID,
		"summary":          n.Summary,
		"suggested_action": n.SuggestedAction,
		"timestamp":        n.CreatedAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (w *Webhook) fallback(n *pkg.MailboxNotification) {
	w.logger.Error("SEVERE case requires attention",
		zap.Int64("patient_id", n.PatientID),
		zap.String("summary", n.Summary),
		zap.String("suggested_action", n.SuggestedAction),
	)
}
