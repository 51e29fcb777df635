package db

import (
	"context"
	"database/sql"
	"time"

	"patientcare-agent/pkg"
)

// Repository wraps database operations for prescriptions, patient feedback
// and the doctor mailbox. A single postgres database is used.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// ListPrescriptionsSince returns prescriptions issued strictly after the
// given timestamp, ordered ascending by issued_on with the row ID as a
// tie-break so that records sharing a timestamp have a deterministic order.
func (r *Repository) ListPrescriptionsSince(ctx context.Context, since time.Time) ([]pkg.Prescription, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, patient_id, text, issued_on
         FROM prescriptions
         WHERE issued_on > $1
         ORDER BY issued_on ASC, id ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pkg.Prescription
	for rows.Next() {
		var p pkg.Prescription
		if err := rows.Scan(&p.ID, &p.PatientID, &p.Text, &p.IssuedOn); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertFeedback persists a feedback entry. For agent-sourced entries
// (SourceID set) the insert is idempotent: a second attempt for the same
// source prescription is a no-op. The returned bool reports whether a row
// was actually written.
func (r *Repository) InsertFeedback(ctx context.Context, e *pkg.FeedbackEntry) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO patient_feedback
             (id, source_id, patient_id, text, summary, category, is_severe, suggested_action, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         ON CONFLICT (source_id) WHERE source_id IS NOT NULL DO NOTHING`,
		e.ID, e.SourceID, e.PatientID, e.Text, e.Summary, string(e.Category), e.IsSevere, e.SuggestedAction, e.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertMailbox enqueues a doctor notification. Like InsertFeedback it is
// idempotent per source prescription; interactive notices (nil SourceID)
// always insert.
func (r *Repository) InsertMailbox(ctx context.Context, n *pkg.MailboxNotification) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO doctor_mailbox
             (id, source_id, patient_id, summary, suggested_action, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (source_id) WHERE source_id IS NOT NULL DO NOTHING`,
		n.ID, n.SourceID, n.PatientID, n.Summary, n.SuggestedAction, n.CreatedAt)
	if err != nil {
		return false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

// ListFeedbackByPatient returns the most recent feedback entries for a
// patient, newest first. Used to compose historical context for the
// interactive classification path.
func (r *Repository) ListFeedbackByPatient(ctx context.Context, patientID int64, limit int) ([]pkg.FeedbackEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, source_id, patient_id, text, summary, category, is_severe, suggested_action, created_at
         FROM patient_feedback
         WHERE patient_id = $1
         ORDER BY created_at DESC
         LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pkg.FeedbackEntry
	for rows.Next() {
		var (
			e        pkg.FeedbackEntry
			sourceID sql.NullInt64
			category string
		)
		if err := rows.Scan(&e.ID, &sourceID, &e.PatientID, &e.Text, &e.Summary, &category, &e.IsSevere, &e.SuggestedAction, &e.CreatedAt); err != nil {
			return nil, err
		}
		if sourceID.Valid {
			v := sourceID.Int64
			e.SourceID = &v
		}
		e.Category = pkg.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreatePrescription inserts a prescription row and returns it with the
// database-assigned ID and issue timestamp. Only used by operational
// tooling; the agent itself never writes to the feed.
func (r *Repository) CreatePrescription(ctx context.Context, patientID int64, text string) (*pkg.Prescription, error) {
	p := pkg.Prescription{PatientID: patientID, Text: text}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO prescriptions (patient_id, text)
         VALUES ($1, $2)
         RETURNING id, issued_on`, patientID, text).Scan(&p.ID, &p.IssuedOn)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
