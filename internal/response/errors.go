package response

// ErrCode is a typed error code enum for consistent local API error
// identification. The rendering UI switches on these, never on messages.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Session state ─────────────────────────────────────────────────
	ErrSessionSubmitted  ErrCode = "SESSION_ALREADY_SUBMITTED"
	ErrSubmitInFlight    ErrCode = "SUBMIT_IN_FLIGHT"
	ErrSubmitFailed      ErrCode = "SUBMIT_FAILED"
	ErrRetryNotPending   ErrCode = "RETRY_NOT_PENDING"
	ErrQuizCompleted     ErrCode = "QUIZ_COMPLETED"
	ErrFullscreenBlocked ErrCode = "FULLSCREEN_REQUIRED"

	// ─── Navigation ────────────────────────────────────────────────────
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrNavigationLocked ErrCode = "NAVIGATION_LOCKED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrSessionSubmitted:
		return "This exam has already been submitted. Answers are frozen."
	case ErrSubmitInFlight:
		return "A submission is already in progress."
	case ErrSubmitFailed:
		return "Submission failed. Your answers are saved locally — please retry."
	case ErrRetryNotPending:
		return "There is no failed submission waiting for a retry."
	case ErrQuizCompleted:
		return "This quiz is no longer available."
	case ErrFullscreenBlocked:
		return "Fullscreen permission is required before the exam can be shown."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam."
	case ErrNavigationLocked:
		return "This exam only allows moving to the next question."
	case ErrInternal:
		return "An internal error occurred."
	default:
		return "An unexpected error occurred."
	}
}
