package model

// SaveAnswerRequest is the local API payload for an answer edit. The payload
// is a complete replacement of the question's response. Answer is a pointer
// so "required" can tell an absent field from a zero value.
type SaveAnswerRequest struct {
	Answer *AnswerPayload `json:"answer" binding:"required"`
}

// NavigateRequest moves the current-question pointer.
type NavigateRequest struct {
	Action     string `json:"action" binding:"required,oneof=next previous select section clear_selection"`
	QuestionID string `json:"question_id" binding:"omitempty,uuid"`
	SectionID  string `json:"section_id" binding:"omitempty,uuid"`
}

// ViolationRequest reports one integrity event from the rendering layer.
type ViolationRequest struct {
	Event   string `json:"event" binding:"required,min=1,max=64"`
	Message string `json:"message" binding:"omitempty,max=500"`
}

// FullscreenRequest reports the outcome of the fullscreen permission request.
type FullscreenRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

// EditorFilesRequest replaces the scratch editor slice (calculator tape, code
// drafts). Not part of the graded submission.
type EditorFilesRequest struct {
	Files map[string]string `json:"files" binding:"required"`
}
