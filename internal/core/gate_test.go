package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"patientcare-agent/pkg"
)

type gateStore struct {
	feedback    []pkg.FeedbackEntry
	mailbox     []pkg.MailboxNotification
	feedbackDup bool
	mailboxDup  bool
	feedbackErr error
	mailboxErr  error
}

func (s *gateStore) InsertFeedback(_ context.Context, e *pkg.FeedbackEntry) (bool, error) {
	if s.feedbackErr != nil {
		return false, s.feedbackErr
	}
	if s.feedbackDup {
		return false, nil
	}
	s.feedback = append(s.feedback, *e)
	return true, nil
}

func (s *gateStore) InsertMailbox(_ context.Context, n *pkg.MailboxNotification) (bool, error) {
	if s.mailboxErr != nil {
		return false, s.mailboxErr
	}
	if s.mailboxDup {
		return false, nil
	}
	s.mailbox = append(s.mailbox, *n)
	return true, nil
}

type countingNotifier struct{ calls int }

func (n *countingNotifier) NotifySevere(context.Context, *pkg.MailboxNotification) { n.calls++ }

func testPrescription() *pkg.Prescription {
	return &pkg.Prescription{
		ID:        7,
		PatientID: 42,
		Text:      "prescription text",
		IssuedOn:  time.Unix(100, 0).UTC(),
	}
}

func severeResult() *pkg.ClassificationResult {
	return &pkg.ClassificationResult{
		Summary:         "severe reaction",
		Category:        pkg.CategoryMedication,
		IsSevere:        true,
		SuggestedAction: "call the patient",
	}
}

func TestGateSevereRoutesDurably(t *testing.T) {
	store := &gateStore{}
	notifier := &countingNotifier{}
	g := NewGate(store, notifier, zap.NewNop())

	outcome, err := g.Route(context.Background(), testPrescription(), severeResult())
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome != pkg.RoutePersisted {
		t.Errorf("outcome: got %q, want %q", outcome, pkg.RoutePersisted)
	}
	if len(store.feedback) != 1 {
		t.Fatalf("feedback entries: got %d, want 1", len(store.feedback))
	}
	e := store.feedback[0]
	if e.SourceID == nil || *e.SourceID != 7 || e.PatientID != 42 || !e.IsSevere {
		t.Errorf("feedback entry: got %+v", e)
	}
	if len(store.mailbox) != 1 {
		t.Fatalf("mailbox notices: got %d, want 1", len(store.mailbox))
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls: got %d, want 1", notifier.calls)
	}
}

func TestGateNonSevereLogsOnly(t *testing.T) {
	store := &gateStore{}
	notifier := &countingNotifier{}
	g := NewGate(store, notifier, zap.NewNop())

	result := severeResult()
	result.IsSevere = false
	outcome, err := g.Route(context.Background(), testPrescription(), result)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome != pkg.RouteLoggedOnly {
		t.Errorf("outcome: got %q, want %q", outcome, pkg.RouteLoggedOnly)
	}
	if len(store.feedback) != 0 || len(store.mailbox) != 0 {
		t.Errorf("durable writes for non-severe: feedback=%d mailbox=%d, want 0/0",
			len(store.feedback), len(store.mailbox))
	}
	if notifier.calls != 0 {
		t.Errorf("notifier calls: got %d, want 0", notifier.calls)
	}
}

func TestGateReplayIsQuiet(t *testing.T) {
	// Re-routing an already-persisted record (crash before checkpoint
	// advance) writes nothing and does not re-notify.
	store := &gateStore{feedbackDup: true, mailboxDup: true}
	notifier := &countingNotifier{}
	g := NewGate(store, notifier, zap.NewNop())

	outcome, err := g.Route(context.Background(), testPrescription(), severeResult())
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome != pkg.RoutePersisted {
		t.Errorf("outcome: got %q, want %q", outcome, pkg.RoutePersisted)
	}
	if notifier.calls != 0 {
		t.Errorf("notifier calls on replay: got %d, want 0", notifier.calls)
	}
}

func TestGateMailboxCompletedAfterPartialFailure(t *testing.T) {
	// Crash scenario: feedback row landed but the mailbox insert failed.
	// The retry must still enqueue the mailbox notice exactly once.
	store := &gateStore{mailboxErr: errors.New("mailbox unavailable")}
	g := NewGate(store, nil, zap.NewNop())

	if _, err := g.Route(context.Background(), testPrescription(), severeResult()); err == nil {
		t.Fatal("route: got nil error, want mailbox failure")
	}

	store.mailboxErr = nil
	store.feedbackDup = true // the feedback row already exists on retry
	if _, err := g.Route(context.Background(), testPrescription(), severeResult()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(store.mailbox) != 1 {
		t.Errorf("mailbox notices after retry: got %d, want 1", len(store.mailbox))
	}
}

func TestGateStorageErrorPropagates(t *testing.T) {
	wantErr := errors.New("insert failed")
	store := &gateStore{feedbackErr: wantErr}
	g := NewGate(store, nil, zap.NewNop())

	_, err := g.Route(context.Background(), testPrescription(), severeResult())
	if !errors.Is(err, wantErr) {
		t.Errorf("err: got %v, want %v", err, wantErr)
	}
}
