package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeTrueFalse    QuestionType = "TRUE_FALSE"
	QuestionTypeFillInBlank  QuestionType = "FILL_IN_BLANK"
	QuestionTypeDescriptive  QuestionType = "DESCRIPTIVE"
	QuestionTypeMatching     QuestionType = "MATCHING"
	QuestionTypeCoding       QuestionType = "CODING"
	QuestionTypeFileUpload   QuestionType = "FILE_UPLOAD"
)

// QuizSettings are the server-side exam policy switches. Read-only on the
// client; they shape navigation, proctoring and the timer but are never
// mutated here.
type QuizSettings struct {
	FullscreenRequired bool `json:"fullscreen_required"`
	AutoSubmitEnabled  bool `json:"auto_submit_enabled"`
	CalculatorEnabled  bool `json:"calculator_enabled"`
	ShuffleEnabled     bool `json:"shuffle_enabled"`
	LinearNavigation   bool `json:"linear_navigation"`
}

// QuizSession identifies one student's attempt at one quiz. Created
// server-side when the attempt starts; the client only reads it.
type QuizSession struct {
	QuizID          uuid.UUID    `json:"quiz_id"`
	StudentID       string       `json:"student_id"`
	Title           string       `json:"title"`
	StartTime       *time.Time   `json:"start_time,omitempty"`
	EndTime         *time.Time   `json:"end_time,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	Settings        QuizSettings `json:"settings"`
}

// Question is a single quiz item. Immutable once fetched — the client only
// ever attaches a Response to it. Config carries the type-specific payload
// (options, blank count, coding template, file constraints) and is opaque to
// the state engine; only the rendering layer interprets it.
type Question struct {
	ID         uuid.UUID       `json:"id"`
	Type       QuestionType    `json:"type"`
	OrderIndex int             `json:"order_index"`
	SectionID  *uuid.UUID      `json:"section_id,omitempty"`
	Text       string          `json:"text"`
	Marks      float64         `json:"marks"`
	NegMarks   float64         `json:"negative_marks,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`

	// Grading fields that may leak through the fetch payload. Stripped by
	// Sanitized before anything reaches the rendering layer.
	AnswerKey   json.RawMessage `json:"answer_key,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
}

// Sanitized returns a copy of the question with grading fields removed.
func (q Question) Sanitized() Question {
	q.AnswerKey = nil
	q.Explanation = ""
	return q
}

// QuizAttempt is the server's record of when this student started.
type QuizAttempt struct {
	StartTime time.Time `json:"start_time"`
}

// QuizPayload is the quiz-fetch endpoint response.
type QuizPayload struct {
	Quiz      QuizSession  `json:"quiz"`
	Questions []Question   `json:"questions"`
	Attempt   *QuizAttempt `json:"quiz_attempt,omitempty"`
}
