package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"patientcare-agent/internal/metrics"
	"patientcare-agent/pkg"
)

// FeedbackStore is the durable storage consumed by the gate. Both inserts
// are idempotent per source prescription and report whether a row was
// actually written.
type FeedbackStore interface {
	InsertFeedback(ctx context.Context, e *pkg.FeedbackEntry) (bool, error)
	InsertMailbox(ctx context.Context, n *pkg.MailboxNotification) (bool, error)
}

// Notifier delivers an urgent-case notice outside the database, e.g. to a
// webhook. Delivery is best-effort; failures must not fail the route.
type Notifier interface {
	NotifySevere(ctx context.Context, n *pkg.MailboxNotification)
}

// Gate decides what happens to a classified prescription: severe results are
// written durably and enqueued for the doctor mailbox, non-severe results
// are logged and discarded. The log-and-discard arm is deliberate
// write-volume control: non-severe signals are numerous and individually
// low value.
type Gate struct {
	store    FeedbackStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewGate constructs a Gate. notifier may be nil when no external
// notification channel is configured.
func NewGate(store FeedbackStore, notifier Notifier, logger *zap.Logger) *Gate {
	return &Gate{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// Route applies the severity policy to one classified record. A storage
// error leaves the record retry-eligible: the caller must not advance its
// checkpoint past it. Re-routing an already-persisted record is a no-op
// thanks to the idempotent inserts, so crash-replay never duplicates rows
// or notifications.
func (g *Gate) Route(ctx context.Context, rec *pkg.Prescription, result *pkg.ClassificationResult) (pkg.RouteOutcome, error) {
	if !result.IsSevere {
		g.logger.Info("non-severe prescription discarded",
			zap.Int64("prescription_id", rec.ID),
			zap.Int64("patient_id", rec.PatientID),
			zap.String("category", string(result.Category)),
			zap.String("summary", result.Summary),
		)
		metrics.IncRouteOutcome(string(pkg.RouteLoggedOnly))
		return pkg.RouteLoggedOnly, nil
	}

	now := g.now().UTC()
	sourceID := rec.ID
	entry := &pkg.FeedbackEntry{
		ID:              uuid.NewString(),
		SourceID:        &sourceID,
		PatientID:       rec.PatientID,
		Text:            rec.Text,
		Summary:         result.Summary,
		Category:        result.Category,
		IsSevere:        true,
		SuggestedAction: result.SuggestedAction,
		CreatedAt:       now,
	}
	inserted, err := g.store.InsertFeedback(ctx, entry)
	if err != nil {
		return "", err
	}

	notice := &pkg.MailboxNotification{
		ID:              uuid.NewString(),
		SourceID:        &sourceID,
		PatientID:       rec.PatientID,
		Summary:         result.Summary,
		SuggestedAction: result.SuggestedAction,
		CreatedAt:       now,
	}
	enqueued, err := g.store.InsertMailbox(ctx, notice)
	if err != nil {
		return "", err
	}

	if enqueued && g.notifier != nil {
		g.notifier.NotifySevere(ctx, notice)
	}
	if inserted || enqueued {
		g.logger.Warn("severe prescription persisted",
			zap.Int64("prescription_id", rec.ID),
			zap.Int64("patient_id", rec.PatientID),
			zap.String("summary", result.Summary),
			zap.String("suggested_action", result.SuggestedAction),
		)
	} else {
		g.logger.Info("severe prescription already persisted",
			zap.Int64("prescription_id", rec.ID),
		)
	}
	metrics.IncRouteOutcome(string(pkg.RoutePersisted))
	return pkg.RoutePersisted, nil
}
