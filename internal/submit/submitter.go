// Package submit owns the terminal state transition. It is the single writer
// of the SUBMITTED / AUTO_SUBMITTED states; every other component treats the
// session metadata as a read-only gate.
package submit

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/session"
	"github.com/evalify/examclient/internal/store"
)

var (
	// ErrAlreadySubmitted means another path already completed the terminal
	// transition. Callers observe the resulting state and no-op.
	ErrAlreadySubmitted = errors.New("session already submitted")

	// ErrSubmitInFlight means a concurrent submission attempt holds the
	// in-flight flag. Exactly one attempt reaches the network at a time.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

// RemoteSubmitter is the server's submit endpoint. Retried calls are expected
// to be idempotent server-side.
type RemoteSubmitter interface {
	Submit(ctx context.Context, responses map[uuid.UUID]model.AnswerPayload, violations string) error
}

// AnswerSource provides the final answers. The synchronizer implements it.
type AnswerSource interface {
	Flush(ctx context.Context) error
	Snapshot() map[uuid.UUID]model.Response
}

// ViolationSource provides the flattened violation log.
type ViolationSource interface {
	Transcript() string
}

// Submitter performs the one-shot submission: flush pending saves, serialize
// violations, call the endpoint, and on success tear down local state.
type Submitter struct {
	inFlight atomic.Bool

	quizID    uuid.UUID
	studentID string

	remote     RemoteSubmitter
	answers    AnswerSource
	violations ViolationSource
	meta       *session.Metadata
	st         store.Store
	log        zerolog.Logger
}

func New(quizID uuid.UUID, studentID string, remote RemoteSubmitter, answers AnswerSource, violations ViolationSource, meta *session.Metadata, st store.Store, log zerolog.Logger) *Submitter {
	return &Submitter{
		quizID:     quizID,
		studentID:  studentID,
		remote:     remote,
		answers:    answers,
		violations: violations,
		meta:       meta,
		st:         st,
		log:        log.With().Str("component", "submit").Logger(),
	}
}

// Submit runs the terminal transition toward the given terminal status:
// SUBMITTED for an explicit student action, AUTO_SUBMITTED for time expiry.
// On failure the session stays NOT_SUBMITTED and local answers are kept — the
// student retries, nothing is lost.
func (s *Submitter) Submit(ctx context.Context, status model.SubmissionStatus) error {
	if s.meta.IsTerminal() {
		return ErrAlreadySubmitted
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer s.inFlight.Store(false)

	// Re-check under the flag: the other producer may have finished while we
	// were acquiring it.
	if s.meta.IsTerminal() {
		return ErrAlreadySubmitted
	}

	// A pending debounced save must land before the submission payload is
	// built. If the flush itself fails the payload below still carries every
	// local answer, so the submission is not blocked on it.
	if err := s.answers.Flush(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Final flush failed, submitting full local answer set")
	}

	responses := make(map[uuid.UUID]model.AnswerPayload)
	for id, r := range s.answers.Snapshot() {
		responses[id] = r.Answer
	}
	transcript := s.violations.Transcript()

	if err := s.remote.Submit(ctx, responses, transcript); err != nil {
		s.log.Error().Err(err).Msg("Submit call failed")
		return err
	}

	s.finalize(ctx, status)
	s.log.Info().
		Str("status", string(status)).
		Int("responses", len(responses)).
		Msg("Exam submitted")
	return nil
}

// AdoptRemoteSubmission records a submission the server already performed
// (cron sweep or another tab) without re-invoking the submit endpoint.
func (s *Submitter) AdoptRemoteSubmission(ctx context.Context) {
	if s.meta.TryTransition(ctx, model.StatusAutoSubmitted) {
		s.log.Info().Msg("Server reports attempt auto-submitted, adopting terminal state")
		s.st.Clear(ctx, config.StoreKey.SessionPrefix(s.quizID.String(), s.studentID))
		// Re-persist metadata so the terminal state survives a reload even
		// though the rest of the session was purged.
		s.st.Write(ctx, config.StoreKey.MetadataKey(s.quizID.String(), s.studentID), s.meta.Snapshot())
	}
}

func (s *Submitter) finalize(ctx context.Context, status model.SubmissionStatus) {
	s.meta.TryTransition(ctx, status)
	s.st.Clear(ctx, config.StoreKey.SessionPrefix(s.quizID.String(), s.studentID))
	s.st.Write(ctx, config.StoreKey.MetadataKey(s.quizID.String(), s.studentID), s.meta.Snapshot())
}
