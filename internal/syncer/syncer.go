// Package syncer keeps the student's responses consistent across three
// surfaces: the in-memory map the UI reads, the durable local store, and the
// remote answer-save endpoint. Edits commit locally first; the remote side is
// eventually consistent via a debounced flush plus a periodic safety net.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/session"
	"github.com/evalify/examclient/internal/store"
)

// ErrSessionSubmitted rejects edits after the session reached a terminal
// state. Answers are frozen at the instant of submission.
var ErrSessionSubmitted = errors.New("session already submitted")

// RemoteSaver is the remote answer-save endpoint.
type RemoteSaver interface {
	SaveResponses(ctx context.Context, patch map[uuid.UUID]model.AnswerPayload) error
}

// Syncer coalesces answer edits and flushes them to the server. A burst of
// keystrokes within the debounce window produces one remote call carrying the
// latest value per question.
type Syncer struct {
	mu        sync.Mutex
	responses map[uuid.UUID]model.Response
	dirty     map[uuid.UUID]time.Time // questions with unflushed edits -> edit time
	debounce  *time.Timer

	quizID    uuid.UUID
	studentID string

	remote RemoteSaver
	meta   *session.Metadata
	st     store.Store
	log    zerolog.Logger

	debounceWindow time.Duration
	flushInterval  time.Duration
}

// New creates a Syncer. debounceWindow coalesces edit bursts; flushInterval
// is the low-frequency re-send that covers a missed debounce trigger (for
// example a backgrounded tab).
func New(quizID uuid.UUID, studentID string, remote RemoteSaver, meta *session.Metadata, st store.Store, log zerolog.Logger, debounceWindow, flushInterval time.Duration) *Syncer {
	return &Syncer{
		responses:      make(map[uuid.UUID]model.Response),
		dirty:          make(map[uuid.UUID]time.Time),
		quizID:         quizID,
		studentID:      studentID,
		remote:         remote,
		meta:           meta,
		st:             st,
		log:            log.With().Str("component", "syncer").Logger(),
		debounceWindow: debounceWindow,
		flushInterval:  flushInterval,
	}
}

// Hydrate loads the persisted answer map from the local store. Called at
// mount, before any remote fetch resolves, so a reload resumes instantly.
func (s *Syncer) Hydrate(ctx context.Context) int {
	var saved map[uuid.UUID]model.Response
	if !s.st.Read(ctx, s.answersKey(), &saved) {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range saved {
		s.responses[id] = r
	}
	return len(saved)
}

// SaveAnswer applies an edit optimistically: the in-memory response and the
// local store are updated synchronously, the remote flush is scheduled. The
// edit is a complete replacement of the question's response.
func (s *Syncer) SaveAnswer(ctx context.Context, questionID uuid.UUID, answer model.AnswerPayload) error {
	if s.meta.IsTerminal() {
		return ErrSessionSubmitted
	}

	now := time.Now()

	s.mu.Lock()
	s.responses[questionID] = model.Response{
		QuestionID: questionID,
		Answer:     answer,
		Timestamp:  now,
	}
	s.dirty[questionID] = now
	s.persistLocked(ctx)

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.debounceWindow, func() {
		if err := s.Flush(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("Debounced flush failed, will retry on next schedule")
		}
	})
	s.mu.Unlock()

	return nil
}

// ClearAnswer removes a question's response. Clearing an unanswered question
// is a no-op. The cleared state is synced like any other edit so the server
// does not resurrect the old value.
func (s *Syncer) ClearAnswer(ctx context.Context, questionID uuid.UUID, qtype model.QuestionType) error {
	if s.meta.IsTerminal() {
		return ErrSessionSubmitted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.responses[questionID]; !ok || r.Answer.IsEmpty() {
		return nil
	}

	now := time.Now()
	s.responses[questionID] = model.Response{
		QuestionID: questionID,
		Answer:     model.AnswerPayload{Type: qtype},
		Timestamp:  now,
	}
	s.dirty[questionID] = now
	s.persistLocked(ctx)
	return nil
}

// Answered reports whether a question has a non-empty response.
// Implements session.AnswerReader.
func (s *Syncer) Answered(questionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[questionID]
	return ok && !r.Answer.IsEmpty()
}

// Response returns the current response for one question.
func (s *Syncer) Response(questionID uuid.UUID) (model.Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[questionID]
	return r, ok
}

// Snapshot returns a copy of the full response map.
func (s *Syncer) Snapshot() map[uuid.UUID]model.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]model.Response, len(s.responses))
	for id, r := range s.responses {
		out[id] = r
	}
	return out
}

// Flush sends every unflushed edit to the server in one patch. The dirty set
// is snapshotted before the call; an edit arriving while the call is in
// flight re-marks its question dirty with a newer timestamp, so a stale
// in-flight payload can never finalize over it. On failure the snapshotted
// questions are re-marked dirty — unless a newer edit already did.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}

	patch := make(map[uuid.UUID]model.AnswerPayload, len(s.dirty))
	taken := make(map[uuid.UUID]time.Time, len(s.dirty))
	for id, ts := range s.dirty {
		patch[id] = s.responses[id].Answer
		taken[id] = ts
		delete(s.dirty, id)
	}
	s.mu.Unlock()

	if err := s.remote.SaveResponses(ctx, patch); err != nil {
		s.mu.Lock()
		for id, ts := range taken {
			if _, newer := s.dirty[id]; !newer {
				s.dirty[id] = ts
			}
		}
		s.mu.Unlock()
		s.log.Warn().Err(err).Int("questions", len(patch)).Msg("Remote save failed, edits kept for retry")
		return err
	}

	s.log.Debug().Int("questions", len(patch)).Msg("Responses flushed")
	return nil
}

// Start runs the periodic safety-net flush until ctx is cancelled or the
// session reaches a terminal state. Call in a goroutine.
func (s *Syncer) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.flushInterval).Msg("Periodic flush started")
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopDebounce()
			s.log.Info().Msg("Periodic flush stopped")
			return
		case <-ticker.C:
			if s.meta.IsTerminal() {
				s.stopDebounce()
				return
			}
			if err := s.Flush(ctx); err != nil {
				// Already logged; next tick retries.
				continue
			}
		}
	}
}

func (s *Syncer) stopDebounce() {
	s.mu.Lock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()
}

// Dirty reports the number of unflushed edits. Test helper.
func (s *Syncer) Dirty() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// persistLocked mirrors the whole response map to the local store.
// Caller holds s.mu.
func (s *Syncer) persistLocked(ctx context.Context) {
	snapshot := make(map[uuid.UUID]model.Response, len(s.responses))
	for id, r := range s.responses {
		snapshot[id] = r
	}
	s.st.Write(ctx, s.answersKey(), snapshot)
}

func (s *Syncer) answersKey() string {
	return config.StoreKey.AnswersKey(s.quizID.String(), s.studentID)
}
