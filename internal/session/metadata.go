package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/store"
)

// Metadata is the in-memory owner of the session's submission status and end
// time. It is the single gate every component consults before mutating
// answers or ticking the timer, and its terminal transition happens at most
// once for the lifetime of the session.
type Metadata struct {
	mu          sync.Mutex
	quizID      uuid.UUID
	studentID   string
	endTime     *time.Time
	status      model.SubmissionStatus
	lastChecked time.Time

	st  store.Store
	log zerolog.Logger
}

// NewMetadata creates session metadata in NOT_SUBMITTED, restoring a previous
// terminal status from the local store if one survived a reload.
func NewMetadata(ctx context.Context, quizID uuid.UUID, studentID string, st store.Store, log zerolog.Logger) *Metadata {
	m := &Metadata{
		quizID:    quizID,
		studentID: studentID,
		status:    model.StatusNotSubmitted,
		st:        st,
		log:       log.With().Str("component", "session_meta").Logger(),
	}

	var saved model.SessionMetadata
	if st.Read(ctx, config.StoreKey.MetadataKey(quizID.String(), studentID), &saved) {
		if saved.Status.IsTerminal() {
			m.status = saved.Status
		}
		m.endTime = saved.EndTime
	}

	return m
}

// SetEndTime records the authoritative deadline. Server-provided end times
// win over anything computed locally; once set from the server it is never
// recomputed from a client-side clock.
func (m *Metadata) SetEndTime(ctx context.Context, end time.Time) {
	m.mu.Lock()
	m.endTime = &end
	m.mu.Unlock()
	m.persist(ctx)
}

// EndTime returns the deadline, or zero time when metadata is not yet loaded.
func (m *Metadata) EndTime() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.endTime == nil {
		return time.Time{}, false
	}
	return *m.endTime, true
}

// Status returns the current submission status.
func (m *Metadata) Status() model.SubmissionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsTerminal reports whether the session reached a final state.
func (m *Metadata) IsTerminal() bool {
	return m.Status().IsTerminal()
}

// TryTransition moves NOT_SUBMITTED to the given terminal state. Returns
// false when the session is already terminal; terminal states never change.
func (m *Metadata) TryTransition(ctx context.Context, to model.SubmissionStatus) bool {
	if !to.IsTerminal() {
		return false
	}

	m.mu.Lock()
	if m.status.IsTerminal() {
		m.mu.Unlock()
		return false
	}
	m.status = to
	m.mu.Unlock()

	m.log.Info().Str("status", string(to)).Msg("Session reached terminal state")
	m.persist(ctx)
	return true
}

// Touch records a completed server status check.
func (m *Metadata) Touch() {
	m.mu.Lock()
	m.lastChecked = time.Now()
	m.mu.Unlock()
}

// Snapshot returns a copy for persistence and the local state endpoint.
func (m *Metadata) Snapshot() model.SessionMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.SessionMetadata{
		QuizID:      m.quizID,
		EndTime:     m.endTime,
		Status:      m.status,
		LastChecked: m.lastChecked,
	}
}

func (m *Metadata) persist(ctx context.Context) {
	m.st.Write(ctx, config.StoreKey.MetadataKey(m.quizID.String(), m.studentID), m.Snapshot())
}
