package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"patientcare-agent/internal/llm"
	"patientcare-agent/internal/metrics"
	"patientcare-agent/pkg"
)

// Classification failure kinds. The classifier fails closed: on any of these
// no partial result is returned and the caller must treat the record as
// unprocessed.
var (
	// ErrTimeout means the AI service did not answer within the
	// configured deadline.
	ErrTimeout = errors.New("classification timed out")
	// ErrService means the transport or the AI service itself failed.
	ErrService = errors.New("classification service error")
	// ErrMalformed means the service answered but the response could not
	// be decoded into a valid result.
	ErrMalformed = errors.New("malformed classification response")
)

// ErrKind maps a classification error to its kind label for logs and
// metrics. Unknown errors are reported as "service".
func ErrKind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "service"
	}
}

// Classifier wraps the AI service behind a bounded, result-returning call.
// Every call is subject to the configured timeout so that a single slow
// record cannot stall the caller beyond the timeout window. The same
// contract serves both the background agent and the interactive path.
type Classifier struct {
	llm     llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClassifier constructs a Classifier. timeout bounds each call to the
// AI service.
func NewClassifier(client llm.Client, timeout time.Duration, logger *zap.Logger) *Classifier {
	return &Classifier{llm: client, timeout: timeout, logger: logger}
}

// ClassifyPrescription classifies a prescription record from the feed.
func (c *Classifier) ClassifyPrescription(ctx context.Context, text string) (*pkg.ClassificationResult, error) {
	return c.classify(ctx, PrescriptionTriagePrompt, text)
}

// ClassifyFeedback classifies user-submitted feedback, optionally wrapped in
// historical context, for the interactive path.
func (c *Classifier) ClassifyFeedback(ctx context.Context, text string) (*pkg.ClassificationResult, error) {
	return c.classify(ctx, FeedbackTriagePrompt, text)
}

func (c *Classifier) classify(ctx context.Context, system, text string) (*pkg.ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.llm.Complete(ctx, system, text)
	metrics.ObserveClassifyDuration(time.Since(start))
	if err != nil {
		kind := ErrService
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrTimeout
		}
		c.logger.Error("classification call failed",
			zap.String("kind", ErrKind(kind)),
			zap.String("text", text),
			zap.Error(err),
		)
		metrics.IncClassifyFailure(ErrKind(kind))
		return nil, fmt.Errorf("%w: %v", kind, err)
	}

	result, err := parseResult(raw)
	if err != nil {
		c.logger.Error("classification response rejected",
			zap.String("kind", ErrKind(ErrMalformed)),
			zap.String("text", text),
			zap.String("response", raw),
			zap.Error(err),
		)
		metrics.IncClassifyFailure(ErrKind(ErrMalformed))
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// Models occasionally echo a request for input instead of a summary,
	// typically when the record text is short. Fall back to an excerpt of
	// the original text.
	if result.Summary == "" || looksLikePromptEcho(result.Summary) {
		result.Summary = excerpt(text, 200)
	}
	return result, nil
}

// rawResult tolerates the loose typing seen in model output: is_severe may
// arrive as a boolean or the strings "true"/"false".
type rawResult struct {
	Summary         string          `json:"summary"`
	Category        string          `json:"category"`
	IsSevere        json.RawMessage `json:"is_severe"`
	SuggestedAction string          `json:"suggested_action"`
}

// parseResult decodes a ClassificationResult from raw model output. Prose
// around the JSON object is tolerated; anything that does not yield a valid
// category and severity flag is rejected.
func parseResult(raw string) (*pkg.ClassificationResult, error) {
	obj := extractJSONObject(raw)
	if obj == "" {
		return nil, errors.New("no JSON object in response")
	}
	var rr rawResult
	if err := json.Unmarshal([]byte(obj), &rr); err != nil {
		return nil, err
	}
	severe, err := parseBoolish(rr.IsSevere)
	if err != nil {
		return nil, fmt.Errorf("is_severe: %w", err)
	}
	category := pkg.Category(strings.ToLower(strings.TrimSpace(rr.Category)))
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", rr.Category)
	}
	return &pkg.ClassificationResult{
		Summary:         strings.TrimSpace(rr.Summary),
		Category:        category,
		IsSevere:        severe,
		SuggestedAction: strings.TrimSpace(rr.SuggestedAction),
	}, nil
}

// extractJSONObject returns the outermost {...} substring of s, or "" when
// no braces are present.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func parseBoolish(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, errors.New("missing")
	}
	trimmed := bytes.TrimSpace(raw)
	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("not a boolean: %s", raw)
}

// looksLikePromptEcho reports whether a summary is the model asking for
// input rather than summarizing it.
func looksLikePromptEcho(summary string) bool {
	s := strings.ToLower(summary)
	return strings.Contains(s, "please provide") || strings.Contains(s, "no text")
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
