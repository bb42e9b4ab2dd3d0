package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/engine"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/proctor"
	ws "github.com/evalify/examclient/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams engine events (countdown ticks, the live violation
// counter, submission status) to the rendering UI and accepts the same
// actions the REST surface offers for latency-sensitive paths.
type WSHandler struct {
	eng      *engine.Engine
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex // per-conn write lock
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(eng *engine.Engine, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		eng:      eng,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
		conns:    make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Broadcast pushes one event to every connected UI.
func (h *WSHandler) Broadcast(event ws.Event, data interface{}) {
	h.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.conns))
	for c, l := range h.conns {
		conns[c] = l
	}
	h.mu.Unlock()

	for conn, lock := range conns {
		lock.Lock()
		err := ws.WriteEvent(conn, event, data)
		lock.Unlock()
		if err != nil {
			h.drop(conn)
		}
	}
}

// Stream godoc
// WS /ws/v1/exam/stream
// Upgrades to WebSocket for the live countdown and violation counter.
func (h *WSHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer h.drop(conn)

	lock := &sync.Mutex{}
	h.mu.Lock()
	h.conns[conn] = lock
	h.mu.Unlock()

	h.log.Info().Msg("UI stream connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				h.log.Debug().Msg("Stream closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, lock, &msg)
		case ws.ActionViolation:
			h.eng.Monitor.Record(c.Request.Context(), proctor.EventType(msg.Event), msg.Message)
			h.write(conn, lock, ws.EventViolations, map[string]int{"count": h.eng.Monitor.Count()})
		case ws.ActionSubmit:
			if err := h.eng.SubmitManual(c.Request.Context()); err != nil {
				h.writeError(conn, lock, "submit failed: "+err.Error())
				continue
			}
			h.Broadcast(ws.EventStatus, map[string]any{"status": h.eng.Meta.Status()})
		case ws.ActionPing:
			h.write(conn, lock, ws.EventPong, nil)
		default:
			h.writeError(conn, lock, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, lock *sync.Mutex, msg *ws.RequestPayload) {
	qid, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		h.writeError(conn, lock, "invalid question_id")
		return
	}

	var answer model.AnswerPayload
	if err := json.Unmarshal(msg.Answer, &answer); err != nil {
		h.writeError(conn, lock, "invalid answer payload")
		return
	}

	// Deliberately not tied to the socket lifetime: a save must land in the
	// local store even if the connection drops mid-call.
	if err := h.eng.Syncer.SaveAnswer(context.Background(), qid, answer); err != nil {
		h.writeError(conn, lock, err.Error())
		return
	}
	h.write(conn, lock, ws.EventSaved, map[string]string{"question_id": qid.String()})
}

func (h *WSHandler) write(conn *websocket.Conn, lock *sync.Mutex, event ws.Event, data interface{}) {
	lock.Lock()
	defer lock.Unlock()
	if err := ws.WriteEvent(conn, event, data); err != nil {
		h.log.Debug().Err(err).Msg("Stream write failed")
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, lock *sync.Mutex, msg string) {
	lock.Lock()
	defer lock.Unlock()
	_ = ws.WriteError(conn, msg)
}

func (h *WSHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}
