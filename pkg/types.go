package pkg

import "time"

// Prescription is a row in the upstream prescription feed. Rows are
// immutable once created and owned by the storage subsystem; the agent only
// ever reads them. IssuedOn is monotonically non-decreasing in insertion
// order and serves as the scan cursor.
type Prescription struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Text      string    `json:"text"`
	IssuedOn  time.Time `json:"issued_on"`
}

// Category describes what a piece of patient feedback is about.
type Category string

const (
	CategoryTreatment  Category = "treatment"
	CategoryService    Category = "service"
	CategoryMedication Category = "medication"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTreatment, CategoryService, CategoryMedication:
		return true
	}
	return false
}

// ClassificationResult is the verdict of the AI triage service for a single
// record. It is ephemeral: the severity gate consumes it immediately and it
// is never stored as-is. Severity is determined by the service, never
// re-derived by callers.
type ClassificationResult struct {
	Summary         string   `json:"summary"`
	Category        Category `json:"category"`
	IsSevere        bool     `json:"is_severe"`
	SuggestedAction string   `json:"suggested_action"`
}

// FeedbackEntry is the durable record written for classified feedback.
// Agent-sourced entries carry the originating prescription ID in SourceID
// and exist only for severe cases; interactive entries have a nil SourceID
// and are persisted regardless of severity.
type FeedbackEntry struct {
	ID              string    `json:"id"`
	SourceID        *int64    `json:"source_id,omitempty"`
	PatientID       int64     `json:"patient_id"`
	Text            string    `json:"text"`
	Summary         string    `json:"summary"`
	Category        Category  `json:"category"`
	IsSevere        bool      `json:"is_severe"`
	SuggestedAction string    `json:"suggested_action"`
	CreatedAt       time.Time `json:"created_at"`
}

// MailboxNotification is an urgent-case notice for the doctor mailbox.
// SourceID mirrors FeedbackEntry.SourceID so that re-processing the same
// prescription cannot enqueue the same notice twice.
type MailboxNotification struct {
	ID              string    `json:"id"`
	SourceID        *int64    `json:"source_id,omitempty"`
	PatientID       int64     `json:"patient_id"`
	Summary         string    `json:"summary"`
	SuggestedAction string    `json:"suggested_action"`
	CreatedAt       time.Time `json:"created_at"`
}

// RouteOutcome is what the severity gate did with a classified record.
type RouteOutcome string

const (
	RoutePersisted  RouteOutcome = "persisted"
	RouteLoggedOnly RouteOutcome = "logged_only"
)

// ChatRequest is the body accepted by the interactive chatbot endpoint.
type ChatRequest struct {
	PatientID int64  `json:"patient_id"`
	Feedback  string `json:"feedback"`
}

// ChatResponse is returned by the chatbot endpoint. Response carries the
// summary of the submitted feedback; AssistantResponse is the message shown
// to the patient.
type ChatResponse struct {
	Success            bool     `json:"success"`
	Response           string   `json:"response"`
	AssistantResponse  string   `json:"assistant_response"`
	SuggestedTreatment string   `json:"suggested_treatment"`
	IsSevere           bool     `json:"is_severe"`
	Category           Category `json:"category"`
}
