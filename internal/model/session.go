package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the single authoritative flag gating answer mutation
// and timer ticking. Both SUBMITTED and AUTO_SUBMITTED are final.
type SubmissionStatus string

const (
	StatusNotSubmitted  SubmissionStatus = "NOT_SUBMITTED"
	StatusSubmitted     SubmissionStatus = "SUBMITTED"
	StatusAutoSubmitted SubmissionStatus = "AUTO_SUBMITTED"
)

// IsTerminal reports whether no further transition is defined.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusSubmitted || s == StatusAutoSubmitted
}

// SessionMetadata is the persisted timer/auto-submit control structure.
type SessionMetadata struct {
	QuizID      uuid.UUID        `json:"quiz_id"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	Status      SubmissionStatus `json:"submission_status"`
	LastChecked time.Time        `json:"last_checked"`
}

// QuestionState holds per-question client-only flags. Created lazily on first
// visit or first mark-for-review; never deleted during the session.
type QuestionState struct {
	Visited         bool `json:"visited"`
	MarkedForReview bool `json:"marked_for_review"`
}

// Violation is one detected proctoring breach. Append-only.
type Violation struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is the derived per-session statistics partition. Answered,
// VisitedOnly and Unattempted are disjoint and sum to Total; MarkedForReview
// overlaps freely with the other buckets.
type Progress struct {
	Answered        int `json:"answered"`
	Unattempted     int `json:"unattempted"`
	VisitedOnly     int `json:"visited_only"`
	MarkedForReview int `json:"marked_for_review"`
	Total           int `json:"total"`
}
