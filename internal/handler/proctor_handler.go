package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalify/examclient/internal/engine"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/proctor"
	"github.com/evalify/examclient/internal/response"
	"github.com/evalify/examclient/internal/validator"
)

// ProctorHandler receives integrity signals from the rendering layer and
// serves the live violation log.
type ProctorHandler struct {
	eng *engine.Engine
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(eng *engine.Engine) *ProctorHandler {
	return &ProctorHandler{eng: eng}
}

// ReportViolation godoc
// POST /api/v1/exam/violations
// Appends one violation. Recording never fails from the UI's perspective —
// a terminal session simply ignores further reports.
func (h *ProctorHandler) ReportViolation(c *gin.Context) {
	var req model.ViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.eng.Monitor.Record(c.Request.Context(), proctor.EventType(req.Event), req.Message)
	response.Success(c, http.StatusOK, gin.H{"count": h.eng.Monitor.Count()})
}

// ListViolations godoc
// GET /api/v1/exam/violations
// The running log plus the deterrent counter shown to the student.
func (h *ProctorHandler) ListViolations(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"violations": h.eng.Monitor.List(),
		"count":      h.eng.Monitor.Count(),
	})
}

// SetFullscreen godoc
// POST /api/v1/exam/fullscreen
// Records the fullscreen permission outcome. When the session requires
// fullscreen, a denial keeps the paper endpoint gated.
func (h *ProctorHandler) SetFullscreen(c *gin.Context) {
	var req model.FullscreenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.eng.Monitor.SetFullscreen(c.Request.Context(), *req.Granted)
	response.Success(c, http.StatusOK, gin.H{"blocked": h.eng.Monitor.Blocked()})
}
