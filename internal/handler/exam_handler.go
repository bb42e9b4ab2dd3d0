package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/engine"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/response"
	"github.com/evalify/examclient/internal/session"
	"github.com/evalify/examclient/internal/submit"
	"github.com/evalify/examclient/internal/syncer"
	"github.com/evalify/examclient/internal/timer"
	"github.com/evalify/examclient/internal/validator"
)

// ExamHandler serves the rendering UI: question payloads, answer edits,
// navigation, progress, and the submission actions.
type ExamHandler struct {
	eng *engine.Engine
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(eng *engine.Engine) *ExamHandler {
	return &ExamHandler{eng: eng}
}

// GetPaper godoc
// GET /api/v1/exam
// Returns quiz metadata and the sanitized question list. Gated on the
// fullscreen permission when the session requires it — no question content
// renders before the grant.
func (h *ExamHandler) GetPaper(c *gin.Context) {
	if h.eng.Monitor.Blocked() {
		response.Fail(c, http.StatusForbidden, response.ErrFullscreenBlocked)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"quiz":      h.eng.Quiz,
		"questions": h.eng.State.Sanitized(),
	})
}

// GetState godoc
// GET /api/v1/exam/state
// Returns everything the UI chrome needs to repaint: progress partition,
// remaining time, submission status, flags, violation counter.
func (h *ExamHandler) GetState(c *gin.Context) {
	current, err := h.eng.State.Current()
	currentID := ""
	if err == nil {
		currentID = current.ID.String()
	}

	response.Success(c, http.StatusOK, gin.H{
		"progress":        h.eng.State.Progress(),
		"flags":           h.eng.State.Flags(),
		"current":         currentID,
		"remaining_ms":    h.eng.Timer.Remaining().Milliseconds(),
		"timer_state":     h.eng.Timer.State(),
		"status":          h.eng.Meta.Status(),
		"retry_pending":   h.eng.Timer.RetryPending(),
		"violation_count": h.eng.Monitor.Count(),
	})
}

// GetResponse godoc
// GET /api/v1/exam/questions/:question_id/response
// Returns the saved response for one question so a remounting widget can
// hydrate its input state.
func (h *ExamHandler) GetResponse(c *gin.Context) {
	id, ok := h.questionID(c)
	if !ok {
		return
	}

	r, found := h.eng.Syncer.Response(id)
	if !found {
		response.Success(c, http.StatusOK, gin.H{"response": nil})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"response": r})
}

// SaveAnswer godoc
// PUT /api/v1/exam/questions/:question_id/answer
// Applies an answer edit: optimistic in-memory commit, synchronous local
// persistence, debounced remote flush.
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	id, ok := h.questionID(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.eng.Syncer.SaveAnswer(c.Request.Context(), id, *req.Answer); err != nil {
		if errors.Is(err, syncer.ErrSessionSubmitted) {
			response.Fail(c, http.StatusConflict, response.ErrSessionSubmitted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": h.eng.State.Progress()})
}

// ClearAnswer godoc
// DELETE /api/v1/exam/questions/:question_id/answer
// Clears a question's response. Idempotent on unanswered questions.
func (h *ExamHandler) ClearAnswer(c *gin.Context) {
	id, ok := h.questionID(c)
	if !ok {
		return
	}

	var qtype model.QuestionType
	for _, q := range h.eng.State.Sanitized() {
		if q.ID == id {
			qtype = q.Type
			break
		}
	}
	if qtype == "" {
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
		return
	}

	if err := h.eng.Syncer.ClearAnswer(c.Request.Context(), id, qtype); err != nil {
		if errors.Is(err, syncer.ErrSessionSubmitted) {
			response.Fail(c, http.StatusConflict, response.ErrSessionSubmitted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": h.eng.State.Progress()})
}

// Navigate godoc
// POST /api/v1/exam/navigate
// Moves the current-question pointer. Jump and previous are rejected when the
// session enforces linear navigation.
func (h *ExamHandler) Navigate(c *gin.Context) {
	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var (
		q   model.Question
		err error
	)
	switch req.Action {
	case "next":
		q, err = h.eng.State.Next(c.Request.Context())
	case "previous":
		q, err = h.eng.State.Previous(c.Request.Context())
	case "select":
		qid, parseErr := uuid.Parse(req.QuestionID)
		if parseErr != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		if err = h.eng.State.SetSelectedQuestion(qid); err == nil {
			q, err = h.eng.State.Current()
		}
	case "section":
		sid, parseErr := uuid.Parse(req.SectionID)
		if parseErr != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		if err = h.eng.State.SelectSection(&sid); err == nil {
			q, err = h.eng.State.Current()
		}
	case "clear_selection":
		h.eng.State.ClearSelection()
		q, err = h.eng.State.Current()
	}

	if err != nil {
		switch {
		case errors.Is(err, session.ErrNavigationLocked):
			response.Fail(c, http.StatusForbidden, response.ErrNavigationLocked)
		case errors.Is(err, session.ErrUnknownQuestion):
			response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	// Arriving at a question marks it visited.
	_ = h.eng.State.MarkVisited(c.Request.Context(), q.ID)

	response.Success(c, http.StatusOK, gin.H{"question": q, "progress": h.eng.State.Progress()})
}

// ToggleReview godoc
// POST /api/v1/exam/questions/:question_id/review
func (h *ExamHandler) ToggleReview(c *gin.Context) {
	id, ok := h.questionID(c)
	if !ok {
		return
	}

	marked, err := h.eng.State.ToggleMarkForReview(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"marked_for_review": marked, "progress": h.eng.State.Progress()})
}

// MarkVisited godoc
// POST /api/v1/exam/questions/:question_id/visit
func (h *ExamHandler) MarkVisited(c *gin.Context) {
	id, ok := h.questionID(c)
	if !ok {
		return
	}

	if err := h.eng.State.MarkVisited(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"progress": h.eng.State.Progress()})
}

// Submit godoc
// POST /api/v1/exam/submit
// The explicit student submission. Loses gracefully to a concurrent
// expiry-triggered submission: the in-flight guard lets exactly one attempt
// reach the network, the other observes the terminal state.
func (h *ExamHandler) Submit(c *gin.Context) {
	err := h.eng.SubmitManual(c.Request.Context())
	if err == nil {
		response.Success(c, http.StatusOK, gin.H{"status": h.eng.Meta.Status()})
		return
	}

	switch {
	case errors.Is(err, submit.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	default:
		response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
	}
}

// RetrySubmit godoc
// POST /api/v1/exam/submit/retry
// Manual retry after the auto-submit retry budget was exhausted.
func (h *ExamHandler) RetrySubmit(c *gin.Context) {
	err := h.eng.Timer.RetryManual(c.Request.Context())
	if err == nil {
		response.Success(c, http.StatusOK, gin.H{"status": h.eng.Meta.Status()})
		return
	}

	if errors.Is(err, timer.ErrRetryNotPending) {
		response.Fail(c, http.StatusConflict, response.ErrRetryNotPending)
		return
	}
	response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
}

// GetEditorFiles godoc
// GET /api/v1/exam/editor-files
// Scratch editor contents (calculator tape, code drafts). Local-only slice,
// never part of the graded submission.
func (h *ExamHandler) GetEditorFiles(c *gin.Context) {
	files := map[string]string{}
	h.eng.Store().Read(c.Request.Context(), h.editorKey(), &files)
	response.Success(c, http.StatusOK, gin.H{"files": files})
}

// SaveEditorFiles godoc
// PUT /api/v1/exam/editor-files
func (h *ExamHandler) SaveEditorFiles(c *gin.Context) {
	var req model.EditorFilesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.eng.Store().Write(c.Request.Context(), h.editorKey(), req.Files)
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

func (h *ExamHandler) editorKey() string {
	return config.StoreKey.EditorFilesKey(h.eng.QuizID.String(), h.eng.StudentID)
}

func (h *ExamHandler) questionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
