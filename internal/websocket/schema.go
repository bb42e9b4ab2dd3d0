package websocket

import "encoding/json"

// ─── Actions (UI → Engine) ──────────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestPayload is the single inbound message shape; fields beyond Action
// are populated per action.
type RequestPayload struct {
	Action Action `json:"action"`

	// answer
	QuestionID string          `json:"question_id,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`

	// violation
	Event   string `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
}

// ─── Events (Engine → UI) ───────────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSaved      Event = "saved"
	EventTick       Event = "tick"
	EventViolations Event = "violations"
	EventStatus     Event = "status"
	EventPong       Event = "pong"
)

// Envelope wraps every outbound push.
type Envelope struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorResponse is sent when an inbound action cannot be handled.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
