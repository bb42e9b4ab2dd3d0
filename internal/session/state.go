package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/store"
)

var (
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrNavigationLocked = errors.New("navigation is locked to forward-only")
	ErrNoQuestions      = errors.New("no questions loaded")
)

// AnswerReader reports whether a question currently has a non-empty answer.
// Implemented by the response synchronizer; keeps progress statistics derived
// rather than stored.
type AnswerReader interface {
	Answered(questionID uuid.UUID) bool
}

// State is the reactive view-model the rendering UI reads and mutates:
// question list, current/selected question, per-question flags, and derived
// progress. All methods are safe for concurrent callers.
type State struct {
	mu        sync.Mutex
	quizID    uuid.UUID
	studentID string
	questions []model.Question
	byID      map[uuid.UUID]int
	flags     map[uuid.UUID]*model.QuestionState

	selectedQuestion *uuid.UUID
	selectedSection  *uuid.UUID
	linear           bool

	answers AnswerReader
	st      store.Store
	log     zerolog.Logger
}

// NewState builds the view-model for a question set. Questions are ordered by
// OrderIndex regardless of fetch order.
func NewState(quizID uuid.UUID, studentID string, questions []model.Question, linear bool, answers AnswerReader, st store.Store, log zerolog.Logger) *State {
	sorted := make([]model.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})

	byID := make(map[uuid.UUID]int, len(sorted))
	for i, q := range sorted {
		byID[q.ID] = i
	}

	return &State{
		quizID:    quizID,
		studentID: studentID,
		questions: sorted,
		byID:      byID,
		flags:     make(map[uuid.UUID]*model.QuestionState),
		linear:    linear,
		answers:   answers,
		st:        st,
		log:       log.With().Str("component", "session_state").Logger(),
	}
}

// Hydrate restores visited/marked flags persisted by a previous tab. Runs
// before any remote fetch resolves so a reload never loses navigation state.
func (s *State) Hydrate(ctx context.Context) {
	var saved map[uuid.UUID]*model.QuestionState
	if !s.st.Read(ctx, config.StoreKey.FlagsKey(s.quizID.String(), s.studentID), &saved) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, fl := range saved {
		if _, ok := s.byID[id]; ok || len(s.byID) == 0 {
			s.flags[id] = fl
		}
	}
}

// Sanitized returns the question list with grading fields stripped. This is
// the only question view handed to the rendering layer.
func (s *State) Sanitized() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Sanitized()
	}
	return out
}

// Current resolves the question the UI should display: the explicit selection
// if set, otherwise the first question of the selected section, otherwise the
// first unanswered question, otherwise the first question.
func (s *State) Current() (model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.questions) == 0 {
		return model.Question{}, ErrNoQuestions
	}

	if s.selectedQuestion != nil {
		if i, ok := s.byID[*s.selectedQuestion]; ok {
			return s.questions[i].Sanitized(), nil
		}
	}

	if s.selectedSection != nil {
		for _, q := range s.questions {
			if q.SectionID != nil && *q.SectionID == *s.selectedSection {
				return q.Sanitized(), nil
			}
		}
	}

	for _, q := range s.questions {
		if !s.answers.Answered(q.ID) {
			return q.Sanitized(), nil
		}
	}

	return s.questions[0].Sanitized(), nil
}

// SetSelectedQuestion jumps to a question explicitly. Rejected in linear
// navigation mode, where only Next from the current question is permitted.
func (s *State) SetSelectedQuestion(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.linear {
		return ErrNavigationLocked
	}
	if _, ok := s.byID[id]; !ok {
		return ErrUnknownQuestion
	}
	s.selectedQuestion = &id
	return nil
}

// ClearSelection drops the explicit selection so Current falls back to its
// defaults.
func (s *State) ClearSelection() {
	s.mu.Lock()
	s.selectedQuestion = nil
	s.mu.Unlock()
}

// SelectSection scopes the default current question to a section. No-op in
// linear mode.
func (s *State) SelectSection(id *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linear {
		return ErrNavigationLocked
	}
	s.selectedSection = id
	s.selectedQuestion = nil
	return nil
}

// Next advances to the question after the current one.
func (s *State) Next(ctx context.Context) (model.Question, error) {
	cur, err := s.Current()
	if err != nil {
		return model.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[cur.ID]
	if !ok || i+1 >= len(s.questions) {
		return cur, nil // Already at the last question.
	}
	next := s.questions[i+1].ID
	s.selectedQuestion = &next
	return s.questions[i+1].Sanitized(), nil
}

// Previous steps back one question. Disabled in linear navigation mode.
func (s *State) Previous(ctx context.Context) (model.Question, error) {
	s.mu.Lock()
	if s.linear {
		s.mu.Unlock()
		return model.Question{}, ErrNavigationLocked
	}
	s.mu.Unlock()

	cur, err := s.Current()
	if err != nil {
		return model.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[cur.ID]
	if !ok || i == 0 {
		return cur, nil
	}
	prev := s.questions[i-1].ID
	s.selectedQuestion = &prev
	return s.questions[i-1].Sanitized(), nil
}

// MarkVisited sets the visited flag. Idempotent; visited is never unset.
func (s *State) MarkVisited(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	s.flag(id).Visited = true
	s.mu.Unlock()

	s.persistFlags(ctx)
	return nil
}

// ToggleMarkForReview flips the review flag without touching visited.
func (s *State) ToggleMarkForReview(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return false, ErrUnknownQuestion
	}
	fl := s.flag(id)
	fl.MarkedForReview = !fl.MarkedForReview
	marked := fl.MarkedForReview
	s.mu.Unlock()

	s.persistFlags(ctx)
	return marked, nil
}

// Progress derives the answered/unattempted/visited-only partition plus the
// review count. A question counted as answered is never also counted as
// visited-only or unattempted.
func (s *State) Progress() model.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := model.Progress{Total: len(s.questions)}
	for _, q := range s.questions {
		answered := s.answers.Answered(q.ID)
		fl := s.flags[q.ID]

		if answered {
			p.Answered++
		} else if fl != nil && fl.Visited {
			p.VisitedOnly++
		}
		if fl != nil && fl.MarkedForReview {
			p.MarkedForReview++
		}
	}
	p.Unattempted = p.Total - p.Answered - p.VisitedOnly
	return p
}

// Flags returns a copy of the per-question flag map for the state endpoint.
func (s *State) Flags() map[uuid.UUID]model.QuestionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]model.QuestionState, len(s.flags))
	for id, fl := range s.flags {
		out[id] = *fl
	}
	return out
}

// flag returns the lazily created flag record. Caller holds s.mu.
func (s *State) flag(id uuid.UUID) *model.QuestionState {
	fl, ok := s.flags[id]
	if !ok {
		fl = &model.QuestionState{}
		s.flags[id] = fl
	}
	return fl
}

func (s *State) persistFlags(ctx context.Context) {
	s.mu.Lock()
	snapshot := make(map[uuid.UUID]model.QuestionState, len(s.flags))
	for id, fl := range s.flags {
		snapshot[id] = *fl
	}
	s.mu.Unlock()

	s.st.Write(ctx, config.StoreKey.FlagsKey(s.quizID.String(), s.studentID), snapshot)
}
