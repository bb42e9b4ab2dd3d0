// Package proctor records exam integrity violations reported by the
// rendering layer. Violations are evidentiary only: nothing here auto-submits
// or blocks the student except the fullscreen permission gate, which is a
// session setting rather than a violation policy.
package proctor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/session"
	"github.com/evalify/examclient/internal/store"
)

// EventType enumerates the integrity signals the UI layer can report.
type EventType string

const (
	EventTabSwitch      EventType = "tab_switch"
	EventWindowBlur     EventType = "window_blur"
	EventFullscreenExit EventType = "fullscreen_exit"
	EventCopyPaste      EventType = "copy_paste"
	EventRightClick     EventType = "right_click"
	EventDevTools       EventType = "devtools_shortcut"
	EventEscapeKey      EventType = "escape_key"
)

// defaultMessages give each event type a human-readable log line when the UI
// does not supply one.
var defaultMessages = map[EventType]string{
	EventTabSwitch:      "Tab switch or window minimize detected",
	EventWindowBlur:     "Exam window lost focus",
	EventFullscreenExit: "Fullscreen mode exited",
	EventCopyPaste:      "Copy/cut/paste attempted",
	EventRightClick:     "Context menu opened",
	EventDevTools:       "Developer tools shortcut pressed",
	EventEscapeKey:      "Escape key suppressed",
}

// Monitor is the append-only violation log for one session. Every record is
// written through to the local store immediately so it survives a crash, and
// kept in memory for the live counter the student sees.
type Monitor struct {
	mu         sync.Mutex
	violations []model.Violation

	fullscreenRequired bool
	fullscreenGranted  bool

	quizID    uuid.UUID
	studentID string

	meta *session.Metadata
	st   store.Store
	log  zerolog.Logger

	// onChange pushes the live counter to connected UI streams.
	onChange func(count int)
}

// NewMonitor creates a Monitor. fullscreenRequired comes from the quiz
// settings; when set, no question content may render until the permission is
// granted.
func NewMonitor(quizID uuid.UUID, studentID string, fullscreenRequired bool, meta *session.Metadata, st store.Store, log zerolog.Logger) *Monitor {
	return &Monitor{
		quizID:             quizID,
		studentID:          studentID,
		fullscreenRequired: fullscreenRequired,
		meta:               meta,
		st:                 st,
		log:                log.With().Str("component", "proctor").Logger(),
	}
}

// OnChange registers the live-counter callback. Must be set before Start.
func (m *Monitor) OnChange(fn func(count int)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Hydrate restores the violation log persisted by a previous tab.
func (m *Monitor) Hydrate(ctx context.Context) int {
	var saved []model.Violation
	if !m.st.Read(ctx, m.key(), &saved) {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations = saved
	return len(saved)
}

// Record appends one violation with a wall-clock timestamp. Ignored once the
// session is terminal — a submitted exam collects no further evidence.
func (m *Monitor) Record(ctx context.Context, event EventType, message string) {
	if m.meta.IsTerminal() {
		return
	}

	if message == "" {
		message = defaultMessages[event]
		if message == "" {
			message = string(event)
		}
	}

	m.mu.Lock()
	m.violations = append(m.violations, model.Violation{
		Message:   message,
		Timestamp: time.Now(),
	})
	count := len(m.violations)
	snapshot := make([]model.Violation, count)
	copy(snapshot, m.violations)
	onChange := m.onChange
	m.mu.Unlock()

	m.st.Write(ctx, m.key(), snapshot)
	m.log.Warn().Str("event", string(event)).Int("count", count).Msg("Violation recorded")

	if onChange != nil {
		onChange(count)
	}
}

// Count returns the live violation counter shown to the student.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.violations)
}

// List returns the violations in chronological order.
func (m *Monitor) List() []model.Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Violation, len(m.violations))
	copy(out, m.violations)
	return out
}

// Transcript flattens the log into the text blob the submit endpoint accepts.
func (m *Monitor) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	for _, v := range m.violations {
		fmt.Fprintf(&b, "[%s] %s\n", v.Timestamp.Format(time.RFC3339), v.Message)
	}
	return b.String()
}

// SetFullscreen records the outcome of the fullscreen permission request.
// Denial under a fullscreen-required session gates question content; denial
// under an optional session is only recorded.
func (m *Monitor) SetFullscreen(ctx context.Context, granted bool) {
	m.mu.Lock()
	m.fullscreenGranted = granted
	required := m.fullscreenRequired
	m.mu.Unlock()

	if !granted && !required {
		m.Record(ctx, EventFullscreenExit, "Fullscreen permission denied")
	}
}

// Blocked reports whether question content must stay hidden until the
// fullscreen permission is granted.
func (m *Monitor) Blocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullscreenRequired && !m.fullscreenGranted
}

func (m *Monitor) key() string {
	return config.StoreKey.ViolationsKey(m.quizID.String(), m.studentID)
}
