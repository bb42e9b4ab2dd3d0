package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/api"
	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		DebounceWindow:   10 * time.Millisecond,
		FlushInterval:    time.Hour,
		TickInterval:     time.Hour,
		PollInterval:     time.Hour,
		WarningThreshold: 2 * time.Minute,
		SubmitRetries:    2,
		SubmitRetryDelay: time.Millisecond,
	}
}

func paperHandler(t *testing.T, quizID uuid.UUID, payload model.QuizPayload) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quizzes/" + quizID.String() + "/paper":
			_ = json.NewEncoder(w).Encode(payload)
		case "/quizzes/" + quizID.String() + "/submit":
			w.WriteHeader(http.StatusOK)
		case "/quizzes/" + quizID.String() + "/responses":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}
}

func testPayload(quizID uuid.UUID, end time.Time) model.QuizPayload {
	return model.QuizPayload{
		Quiz: model.QuizSession{
			QuizID:  quizID,
			Title:   "Final",
			EndTime: &end,
		},
		Questions: []model.Question{
			{ID: uuid.New(), Type: model.QuestionTypeSingleChoice, OrderIndex: 0, Text: "q1"},
			{ID: uuid.New(), Type: model.QuestionTypeDescriptive, OrderIndex: 1, Text: "q2"},
		},
	}
}

func TestStartBootsFullSession(t *testing.T) {
	ctx := context.Background()
	quizID := uuid.New()
	end := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	srv := httptest.NewServer(paperHandler(t, quizID, testPayload(quizID, end)))
	defer srv.Close()

	st := store.NewMemoryStore()
	client := api.NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	eng := New(testConfig(), quizID, "s1", st, client, zerolog.Nop())

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	if eng.Quiz.Title != "Final" {
		t.Errorf("quiz title = %q", eng.Quiz.Title)
	}
	if got, ok := eng.Meta.EndTime(); !ok || !got.Equal(end) {
		t.Errorf("end time = %v, want the server-provided %v", got, end)
	}
	if len(eng.State.Sanitized()) != 2 {
		t.Error("question list not loaded into session state")
	}
	if eng.Timer.Remaining() <= 0 {
		t.Error("countdown not derived from the end time")
	}
}

func TestStartFallsBackToCachedQuizOffline(t *testing.T) {
	ctx := context.Background()
	quizID := uuid.New()
	end := time.Now().Add(time.Hour)
	srv := httptest.NewServer(paperHandler(t, quizID, testPayload(quizID, end)))

	st := store.NewMemoryStore()

	// First boot online caches the quiz.
	client := api.NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	eng := New(testConfig(), quizID, "s1", st, client, zerolog.Nop())
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("online Start: %v", err)
	}
	eng.Stop()
	srv.Close()

	// Second boot with the server gone resumes from the cached copy.
	offline := New(testConfig(), quizID, "s1", st, client, zerolog.Nop())
	if err := offline.Start(ctx); err != nil {
		t.Fatalf("offline Start: %v", err)
	}
	defer offline.Stop()

	if offline.Quiz.Title != "Final" || len(offline.State.Sanitized()) != 2 {
		t.Error("cached quiz not restored")
	}
}

func TestStartWithoutCacheOrNetworkFails(t *testing.T) {
	quizID := uuid.New()
	// Port from a server that is already closed: connection refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client := api.NewClient(addr, "tok", quizID, zerolog.Nop())
	eng := New(testConfig(), quizID, "s1", store.NewMemoryStore(), client, zerolog.Nop())

	err := eng.Start(context.Background())
	if !errors.Is(err, ErrQuizUnavailable) {
		t.Fatalf("err = %v, want ErrQuizUnavailable", err)
	}
}

func TestStartPassesThroughCompletedQuiz(t *testing.T) {
	quizID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	eng := New(testConfig(), quizID, "s1", store.NewMemoryStore(), client, zerolog.Nop())

	err := eng.Start(context.Background())
	if !errors.Is(err, api.ErrQuizCompleted) {
		t.Fatalf("err = %v, want ErrQuizCompleted", err)
	}
}

func TestEndTimeFallsBackToAttemptStartPlusDuration(t *testing.T) {
	ctx := context.Background()
	quizID := uuid.New()
	start := time.Now().Add(-10 * time.Minute)

	payload := testPayload(quizID, time.Time{})
	payload.Quiz.EndTime = nil
	payload.Quiz.DurationMinutes = 60
	payload.Attempt = &model.QuizAttempt{StartTime: start}

	srv := httptest.NewServer(paperHandler(t, quizID, payload))
	defer srv.Close()

	client := api.NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	eng := New(testConfig(), quizID, "s1", store.NewMemoryStore(), client, zerolog.Nop())
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	end, ok := eng.Meta.EndTime()
	if !ok {
		t.Fatal("no end time resolved")
	}
	want := start.Add(time.Hour)
	if d := end.Sub(want); d < -time.Second || d > time.Second {
		t.Errorf("end = %v, want attempt start + duration (%v)", end, want)
	}
}

func TestSubmitManualFinalizesAndStopsTimer(t *testing.T) {
	ctx := context.Background()
	quizID := uuid.New()
	srv := httptest.NewServer(paperHandler(t, quizID, testPayload(quizID, time.Now().Add(time.Hour))))
	defer srv.Close()

	client := api.NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	eng := New(testConfig(), quizID, "s1", store.NewMemoryStore(), client, zerolog.Nop())
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	if err := eng.SubmitManual(ctx); err != nil {
		t.Fatalf("SubmitManual: %v", err)
	}
	if eng.Meta.Status() != model.StatusSubmitted {
		t.Errorf("status = %s, want SUBMITTED", eng.Meta.Status())
	}

	// A second press reports success without another network call.
	if err := eng.SubmitManual(ctx); err != nil {
		t.Errorf("repeat SubmitManual: %v", err)
	}
}
