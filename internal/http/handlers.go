package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"patientcare-agent/pkg"
)

// Assistant responses shown to the patient depending on severity. The
// interactive path never exposes raw model output as the verdict.
const (
	severeReply    = "Immediate attention required. Your doctor will be notified."
	nonSevereReply = "There is no urgent concern at this time. Please keep track of how you are feeling."
)

// historyLimit caps how many past feedback entries are folded into the
// classification context.
const historyLimit = 20

// Classifier is the synchronous classification contract shared with the
// background agent.
type Classifier interface {
	ClassifyFeedback(ctx context.Context, text string) (*pkg.ClassificationResult, error)
}

// Store is the durable storage consumed by the interactive path.
type Store interface {
	InsertFeedback(ctx context.Context, e *pkg.FeedbackEntry) (bool, error)
	InsertMailbox(ctx context.Context, n *pkg.MailboxNotification) (bool, error)
	ListFeedbackByPatient(ctx context.Context, patientID int64, limit int) ([]pkg.FeedbackEntry, error)
}

// Notifier delivers severe-case notices, best-effort.
type Notifier interface {
	NotifySevere(ctx context.Context, n *pkg.MailboxNotification)
}

// Server bundles together the dependencies required by HTTP handlers.
type Server struct {
	Store      Store
	Classifier Classifier
	Notifier   Notifier
	Logger     *zap.Logger
}

// NewServer constructs a Server. notifier may be nil.
func NewServer(store Store, classifier Classifier, notifier Notifier, logger *zap.Logger) *Server {
	return &Server{Store: store, Classifier: classifier, Notifier: notifier, Logger: logger}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/chatbot", s.handleChatbot)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleChatbot runs the synchronous feedback pipeline: compose patient
// context, classify, persist, respond. Unlike the background agent the
// interactive path always persists the feedback entry; only the mailbox
// notice depends on severity.
func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PatientID <= 0 {
		s.writeError(w, http.StatusBadRequest, "patient_id must be a positive integer")
		return
	}
	if strings.TrimSpace(req.Feedback) == "" {
		s.writeError(w, http.StatusBadRequest, "feedback must not be empty")
		return
	}

	s.Logger.Info("received feedback", zap.Int64("patient_id", req.PatientID))

	result, err := s.Classifier.ClassifyFeedback(ctx, s.composeContext(ctx, req.PatientID, req.Feedback))
	if err != nil {
		// Fail closed: no partial severity judgment reaches the patient.
		s.Logger.Error("interactive classification failed",
			zap.Int64("patient_id", req.PatientID),
			zap.Error(err),
		)
		s.writeError(w, http.StatusBadGateway, "feedback analysis is temporarily unavailable")
		return
	}

	entry := &pkg.FeedbackEntry{
		ID:              uuid.NewString(),
		PatientID:       req.PatientID,
		Text:            req.Feedback,
		Summary:         result.Summary,
		Category:        result.Category,
		IsSevere:        result.IsSevere,
		SuggestedAction: result.SuggestedAction,
		CreatedAt:       time.Now().UTC(),
	}
	if _, err := s.Store.InsertFeedback(ctx, entry); err != nil {
		s.Logger.Error("failed to persist feedback",
			zap.Int64("patient_id", req.PatientID),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	reply := nonSevereReply
	if result.IsSevere {
		reply = severeReply
		notice := &pkg.MailboxNotification{
			ID:              uuid.NewString(),
			PatientID:       req.PatientID,
			Summary:         result.Summary,
			SuggestedAction: result.SuggestedAction,
			CreatedAt:       entry.CreatedAt,
		}
		if _, err := s.Store.InsertMailbox(ctx, notice); err != nil {
			// The feedback entry is already durable; surface the mailbox
			// failure to operators and keep the patient response intact.
			s.Logger.Error("failed to enqueue doctor notification",
				zap.Int64("patient_id", req.PatientID),
				zap.Error(err),
			)
		} else if s.Notifier != nil {
			s.Notifier.NotifySevere(ctx, notice)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pkg.ChatResponse{
		Success:            true,
		Response:           result.Summary,
		AssistantResponse:  reply,
		SuggestedTreatment: result.SuggestedAction,
		IsSevere:           result.IsSevere,
		Category:           result.Category,
	})
}

// composeContext combines the patient's historical feedback with the new
// message. When history is unavailable the new feedback alone is used.
func (s *Server) composeContext(ctx context.Context, patientID int64, feedback string) string {
	history, err := s.Store.ListFeedbackByPatient(ctx, patientID, historyLimit)
	if err != nil {
		s.Logger.Warn("patient history unavailable, classifying new feedback only",
			zap.Int64("patient_id", patientID),
			zap.Error(err),
		)
		return "New feedback:\n" + feedback
	}
	if len(history) == 0 {
		return "New feedback:\n" + feedback
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Patient ID: %d\n\nHistorical feedback:\n", patientID)
	for _, h := range history {
		fmt.Fprintf(&b, "%s: %s\n", h.CreatedAt.Format(time.RFC3339), h.Summary)
	}
	b.WriteString("\nNew feedback:\n")
	b.WriteString(feedback)
	return b.String()
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
