package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/store"
)

// answerSet is a trivial AnswerReader backed by a set of question IDs.
type answerSet map[uuid.UUID]bool

func (a answerSet) Answered(id uuid.UUID) bool { return a[id] }

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:         uuid.New(),
			Type:       model.QuestionTypeSingleChoice,
			OrderIndex: i,
			Text:       "q",
			AnswerKey:  []byte(`"A"`),
		}
	}
	return qs
}

func newTestState(qs []model.Question, linear bool, answered answerSet, st store.Store) *State {
	return NewState(uuid.New(), "s1", qs, linear, answered, st, zerolog.Nop())
}

func TestStateOrdersByOrderIndex(t *testing.T) {
	qs := makeQuestions(3)
	// Shuffle the fetch order; display order must follow OrderIndex.
	shuffled := []model.Question{qs[2], qs[0], qs[1]}

	s := newTestState(shuffled, false, answerSet{}, store.NewMemoryStore())
	out := s.Sanitized()
	for i, q := range out {
		if q.OrderIndex != i {
			t.Fatalf("position %d holds OrderIndex %d", i, q.OrderIndex)
		}
	}
}

func TestSanitizedStripsGradingFields(t *testing.T) {
	qs := makeQuestions(2)
	qs[0].Explanation = "because"

	s := newTestState(qs, false, answerSet{}, store.NewMemoryStore())
	for _, q := range s.Sanitized() {
		if q.AnswerKey != nil || q.Explanation != "" {
			t.Fatal("grading fields leaked through the session surface")
		}
	}
}

func TestCurrentDefaultsToFirstUnanswered(t *testing.T) {
	qs := makeQuestions(4)
	answered := answerSet{qs[0].ID: true, qs[1].ID: true}
	s := newTestState(qs, false, answered, store.NewMemoryStore())

	cur, err := s.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.ID != qs[2].ID {
		t.Errorf("current = index %d, want the first unanswered (2)", cur.OrderIndex)
	}

	// All answered: fall back to the first question.
	answered[qs[2].ID] = true
	answered[qs[3].ID] = true
	cur, _ = s.Current()
	if cur.ID != qs[0].ID {
		t.Errorf("with everything answered current = index %d, want 0", cur.OrderIndex)
	}
}

func TestExplicitSelectionWinsOverDefaults(t *testing.T) {
	ctx := context.Background()
	qs := makeQuestions(3)
	s := newTestState(qs, false, answerSet{}, store.NewMemoryStore())

	if err := s.SetSelectedQuestion(qs[2].ID); err != nil {
		t.Fatalf("SetSelectedQuestion: %v", err)
	}
	cur, _ := s.Current()
	if cur.ID != qs[2].ID {
		t.Fatal("explicit selection ignored")
	}

	s.ClearSelection()
	cur, _ = s.Current()
	if cur.ID != qs[0].ID {
		t.Fatal("ClearSelection did not restore the default")
	}

	if err := s.SetSelectedQuestion(uuid.New()); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("selecting a foreign question: err = %v, want ErrUnknownQuestion", err)
	}
	_ = ctx
}

func TestSectionSelectionScopesCurrent(t *testing.T) {
	qs := makeQuestions(4)
	sec := uuid.New()
	qs[2].SectionID = &sec
	qs[3].SectionID = &sec

	s := newTestState(qs, false, answerSet{}, store.NewMemoryStore())
	if err := s.SelectSection(&sec); err != nil {
		t.Fatalf("SelectSection: %v", err)
	}
	cur, _ := s.Current()
	if cur.ID != qs[2].ID {
		t.Errorf("current = index %d, want the section's first question (2)", cur.OrderIndex)
	}
}

func TestNextAndPreviousWalkTheOrder(t *testing.T) {
	ctx := context.Background()
	qs := makeQuestions(3)
	s := newTestState(qs, false, answerSet{}, store.NewMemoryStore())

	q, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if q.ID != qs[1].ID {
		t.Fatalf("Next landed on index %d, want 1", q.OrderIndex)
	}

	q, _ = s.Next(ctx)
	if q.ID != qs[2].ID {
		t.Fatalf("Next landed on index %d, want 2", q.OrderIndex)
	}

	// Next at the end stays put.
	q, _ = s.Next(ctx)
	if q.ID != qs[2].ID {
		t.Error("Next walked past the last question")
	}

	q, err = s.Previous(ctx)
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if q.ID != qs[1].ID {
		t.Errorf("Previous landed on index %d, want 1", q.OrderIndex)
	}
}

func TestLinearModeLocksBackwardNavigation(t *testing.T) {
	ctx := context.Background()
	qs := makeQuestions(3)
	s := newTestState(qs, true, answerSet{}, store.NewMemoryStore())

	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("Next in linear mode: %v", err)
	}

	if _, err := s.Previous(ctx); !errors.Is(err, ErrNavigationLocked) {
		t.Errorf("Previous: err = %v, want ErrNavigationLocked", err)
	}
	if err := s.SetSelectedQuestion(qs[0].ID); !errors.Is(err, ErrNavigationLocked) {
		t.Errorf("SetSelectedQuestion: err = %v, want ErrNavigationLocked", err)
	}
	if err := s.SelectSection(nil); !errors.Is(err, ErrNavigationLocked) {
		t.Errorf("SelectSection: err = %v, want ErrNavigationLocked", err)
	}
}

func TestMarkVisitedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	qs := makeQuestions(2)
	s := newTestState(qs, false, answerSet{}, store.NewMemoryStore())

	for i := 0; i < 3; i++ {
		if err := s.MarkVisited(ctx, qs[0].ID); err != nil {
			t.Fatalf("MarkVisited: %v", err)
		}
	}
	if !s.Flags()[qs[0].ID].Visited {
		t.Fatal("visited flag not set")
	}
	if err := s.MarkVisited(ctx, uuid.New()); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestToggleMarkForReview(t *testing.T) {
	ctx := context.Background()
	qs := makeQuestions(1)
	s := newTestState(qs, false, answerSet{}, store.NewMemoryStore())

	marked, err := s.ToggleMarkForReview(ctx, qs[0].ID)
	if err != nil || !marked {
		t.Fatalf("first toggle = (%v, %v), want (true, nil)", marked, err)
	}
	marked, _ = s.ToggleMarkForReview(ctx, qs[0].ID)
	if marked {
		t.Error("second toggle must unmark")
	}
	// Toggling review never touches visited.
	if s.Flags()[qs[0].ID].Visited {
		t.Error("review toggle set the visited flag")
	}
}

func TestProgressPartitionIsDisjointAndComplete(t *testing.T) {
	ctx := context.Background()
	qs := makeQuestions(5)
	answered := answerSet{qs[0].ID: true, qs[1].ID: true}
	s := newTestState(qs, false, answered, store.NewMemoryStore())

	// q2 visited but unanswered, q0 visited and answered (counts once).
	_ = s.MarkVisited(ctx, qs[2].ID)
	_ = s.MarkVisited(ctx, qs[0].ID)
	_, _ = s.ToggleMarkForReview(ctx, qs[3].ID)

	p := s.Progress()
	if p.Answered != 2 || p.VisitedOnly != 1 || p.Unattempted != 2 {
		t.Errorf("partition = %d/%d/%d, want 2/1/2", p.Answered, p.VisitedOnly, p.Unattempted)
	}
	if p.Answered+p.VisitedOnly+p.Unattempted != p.Total {
		t.Error("partition does not sum to total")
	}
	if p.MarkedForReview != 1 {
		t.Errorf("marked for review = %d, want 1", p.MarkedForReview)
	}
}

func TestFlagsSurviveReloadViaHydrate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	qs := makeQuestions(2)
	quizID := uuid.New()

	s := NewState(quizID, "s1", qs, false, answerSet{}, st, zerolog.Nop())
	_ = s.MarkVisited(ctx, qs[0].ID)
	_, _ = s.ToggleMarkForReview(ctx, qs[1].ID)

	fresh := NewState(quizID, "s1", qs, false, answerSet{}, st, zerolog.Nop())
	fresh.Hydrate(ctx)

	fl := fresh.Flags()
	if !fl[qs[0].ID].Visited {
		t.Error("visited flag lost across reload")
	}
	if !fl[qs[1].ID].MarkedForReview {
		t.Error("review flag lost across reload")
	}
}

func TestMetadataTerminalTransitionHappensOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	quizID := uuid.New()
	m := NewMetadata(ctx, quizID, "s1", st, zerolog.Nop())

	if m.IsTerminal() {
		t.Fatal("fresh session must start NOT_SUBMITTED")
	}
	if m.TryTransition(ctx, model.StatusNotSubmitted) {
		t.Error("transition to a non-terminal state must be rejected")
	}
	if !m.TryTransition(ctx, model.StatusSubmitted) {
		t.Fatal("first terminal transition rejected")
	}
	if m.TryTransition(ctx, model.StatusAutoSubmitted) {
		t.Error("second terminal transition must be rejected")
	}
	if m.Status() != model.StatusSubmitted {
		t.Errorf("status = %s, want SUBMITTED", m.Status())
	}

	// Terminal status survives a reload.
	fresh := NewMetadata(ctx, quizID, "s1", st, zerolog.Nop())
	if fresh.Status() != model.StatusSubmitted {
		t.Errorf("reloaded status = %s, want SUBMITTED", fresh.Status())
	}
}
