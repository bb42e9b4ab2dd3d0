// Package engine wires the session components together and owns the boot
// sequence: hydrate local state, fetch (or restore) the quiz, derive the
// authoritative end time, and run the background loops.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/api"
	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/proctor"
	"github.com/evalify/examclient/internal/session"
	"github.com/evalify/examclient/internal/store"
	"github.com/evalify/examclient/internal/submit"
	"github.com/evalify/examclient/internal/syncer"
	"github.com/evalify/examclient/internal/timer"
)

// ErrQuizUnavailable means the quiz could not be fetched and no cached copy
// exists. Fatal to the session: redirect out, do not render a partial quiz.
var ErrQuizUnavailable = errors.New("quiz unavailable and no cached copy")

// Engine is the assembled exam session: one quiz, one student, one attempt.
type Engine struct {
	QuizID    uuid.UUID
	StudentID string

	Quiz      *model.QuizSession
	Meta      *session.Metadata
	State     *session.State
	Syncer    *syncer.Syncer
	Monitor   *proctor.Monitor
	Timer     *timer.Controller
	Submitter *submit.Submitter

	st     store.Store
	client *api.Client
	cfg    *config.Config
	log    zerolog.Logger
	cancel context.CancelFunc
}

// New builds an Engine. Nothing talks to the network until Start.
func New(cfg *config.Config, quizID uuid.UUID, studentID string, st store.Store, client *api.Client, log zerolog.Logger) *Engine {
	return &Engine{
		QuizID:    quizID,
		StudentID: studentID,
		st:        st,
		client:    client,
		cfg:       cfg,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Start runs the boot sequence and launches the background loops.
//
// Ordering matters: the local store is hydrated before the remote fetch so a
// reload with no network still resumes every saved answer; the remote quiz
// payload, once it arrives, is the authority on timing and settings.
func (e *Engine) Start(ctx context.Context) error {
	e.Meta = session.NewMetadata(ctx, e.QuizID, e.StudentID, e.st, e.log)

	e.Syncer = syncer.New(e.QuizID, e.StudentID, e.client, e.Meta, e.st, e.log,
		e.cfg.DebounceWindow, e.cfg.FlushInterval)
	if n := e.Syncer.Hydrate(ctx); n > 0 {
		e.log.Info().Int("answers", n).Msg("Resumed saved answers from local store")
	}

	payload, err := e.loadQuiz(ctx)
	if err != nil {
		return err
	}
	e.Quiz = &payload.Quiz

	e.Monitor = proctor.NewMonitor(e.QuizID, e.StudentID, payload.Quiz.Settings.FullscreenRequired, e.Meta, e.st, e.log)
	if n := e.Monitor.Hydrate(ctx); n > 0 {
		e.log.Info().Int("violations", n).Msg("Resumed violation log from local store")
	}

	e.State = session.NewState(e.QuizID, e.StudentID, payload.Questions,
		payload.Quiz.Settings.LinearNavigation, e.Syncer, e.st, e.log)
	e.State.Hydrate(ctx)

	e.Submitter = submit.New(e.QuizID, e.StudentID, e.client, e.Syncer, e.Monitor, e.Meta, e.st, e.log)

	end, err := e.resolveEndTime(payload)
	if err != nil {
		return err
	}
	e.Meta.SetEndTime(ctx, end)

	e.Timer = timer.New(e.Meta, e.client, e.Submitter, e.log,
		timer.WithIntervals(e.cfg.TickInterval, e.cfg.PollInterval),
		timer.WithRetryPolicy(e.cfg.SubmitRetries, e.cfg.SubmitRetryDelay),
		timer.WithWarningThreshold(e.cfg.WarningThreshold),
	)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.Syncer.Start(runCtx)
	go e.Timer.Start(runCtx)

	e.log.Info().
		Str("quiz", payload.Quiz.Title).
		Int("questions", len(payload.Questions)).
		Time("end_time", end).
		Msg("Exam session ready")
	return nil
}

// Store exposes the local store for auxiliary slices (editor files).
func (e *Engine) Store() store.Store {
	return e.st
}

// Stop tears down the background loops. Idempotent.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	if e.Timer != nil {
		e.Timer.Stop()
	}
}

// SubmitManual runs the student-initiated submission and stops the loops on
// success.
func (e *Engine) SubmitManual(ctx context.Context) error {
	err := e.Submitter.Submit(ctx, model.StatusSubmitted)
	if err == nil || errors.Is(err, submit.ErrAlreadySubmitted) {
		e.Timer.Stop()
		return nil
	}
	return err
}

// loadQuiz fetches the quiz and caches it locally; on a network failure it
// falls back to the cached copy so an offline reload still renders.
func (e *Engine) loadQuiz(ctx context.Context) (*model.QuizPayload, error) {
	payload, err := e.client.FetchQuiz(ctx)
	if err != nil {
		if errors.Is(err, api.ErrQuizCompleted) {
			return nil, err
		}

		e.log.Warn().Err(err).Msg("Quiz fetch failed, trying cached copy")
		cached := &model.QuizPayload{}
		quizOK := e.st.Read(ctx, config.StoreKey.QuizKey(e.QuizID.String(), e.StudentID), &cached.Quiz)
		questionsOK := e.st.Read(ctx, config.StoreKey.QuestionsKey(e.QuizID.String(), e.StudentID), &cached.Questions)
		if !quizOK || !questionsOK {
			return nil, fmt.Errorf("%w: %s", ErrQuizUnavailable, err)
		}
		return cached, nil
	}

	e.st.Write(ctx, config.StoreKey.QuizKey(e.QuizID.String(), e.StudentID), payload.Quiz)
	e.st.Write(ctx, config.StoreKey.QuestionsKey(e.QuizID.String(), e.StudentID), payload.Questions)
	return payload, nil
}

// resolveEndTime picks the deadline. A server-provided end time is always
// authoritative — recomputing from a local clock would let a skewed or
// tampered clock stretch the window. The start-plus-duration fallback still
// uses the server's attempt start, never a locally seeded one.
func (e *Engine) resolveEndTime(payload *model.QuizPayload) (time.Time, error) {
	if payload.Quiz.EndTime != nil {
		return *payload.Quiz.EndTime, nil
	}
	if payload.Attempt != nil && payload.Quiz.DurationMinutes > 0 {
		return payload.Attempt.StartTime.Add(time.Duration(payload.Quiz.DurationMinutes) * time.Minute), nil
	}
	if end, ok := e.Meta.EndTime(); ok {
		// Cached from a previous boot of this attempt.
		return end, nil
	}
	return time.Time{}, errors.New("no end time available from server payload")
}
