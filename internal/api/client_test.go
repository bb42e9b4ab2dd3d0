package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/model"
)

func TestFetchQuizDecodesPayload(t *testing.T) {
	quizID := uuid.New()
	qID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quizzes/"+quizID.String()+"/paper" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(model.QuizPayload{
			Quiz: model.QuizSession{QuizID: quizID, Title: "Midterm"},
			Questions: []model.Question{
				{ID: qID, Type: model.QuestionTypeSingleChoice, Text: "2+2?"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	payload, err := c.FetchQuiz(context.Background())
	if err != nil {
		t.Fatalf("FetchQuiz: %v", err)
	}
	if payload.Quiz.Title != "Midterm" || len(payload.Questions) != 1 {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Questions[0].ID != qID {
		t.Error("question ID lost in decode")
	}
}

func TestCompletedAttemptStatusCodesMapToErrQuizCompleted(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusPaymentRequired, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		c := NewClient(srv.URL, "tok", uuid.New(), zerolog.Nop())
		_, err := c.FetchQuiz(context.Background())
		if !errors.Is(err, ErrQuizCompleted) {
			t.Errorf("status %d: err = %v, want ErrQuizCompleted", code, err)
		}
		srv.Close()
	}
}

func TestCompletedMessageMapsToErrQuizCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"message":"Quiz already completed"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", uuid.New(), zerolog.Nop())
	_, err := c.FetchQuiz(context.Background())
	if !errors.Is(err, ErrQuizCompleted) {
		t.Fatalf("err = %v, want ErrQuizCompleted", err)
	}
}

func TestOtherServerErrorsAreNotCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", uuid.New(), zerolog.Nop())
	_, err := c.FetchQuiz(context.Background())
	if err == nil || errors.Is(err, ErrQuizCompleted) {
		t.Fatalf("err = %v, a 500 must stay retryable", err)
	}
}

func TestSaveResponsesSendsPatchBody(t *testing.T) {
	quizID := uuid.New()
	qID := uuid.New()

	var got struct {
		QuizID    uuid.UUID                         `json:"quiz_id"`
		Responses map[uuid.UUID]model.AnswerPayload `json:"responses"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	patch := map[uuid.UUID]model.AnswerPayload{
		qID: {Type: model.QuestionTypeSingleChoice, Selected: "B"},
	}
	if err := c.SaveResponses(context.Background(), patch); err != nil {
		t.Fatalf("SaveResponses: %v", err)
	}
	if got.QuizID != quizID {
		t.Errorf("quiz_id = %s, want %s", got.QuizID, quizID)
	}
	if got.Responses[qID].Selected != "B" {
		t.Errorf("responses = %+v", got.Responses)
	}
}

func TestSubmitCarriesViolationTranscript(t *testing.T) {
	quizID := uuid.New()

	var got struct {
		Violations string `json:"violations"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", quizID, zerolog.Nop())
	err := c.Submit(context.Background(), nil, "[2026-08-25T10:00:00Z] Tab switch\n")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Violations == "" {
		t.Error("violation transcript missing from the submit payload")
	}
}

func TestCheckAutoSubmit(t *testing.T) {
	submitted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"auto_submitted": submitted})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", uuid.New(), zerolog.Nop())

	done, err := c.CheckAutoSubmit(context.Background())
	if err != nil || done {
		t.Fatalf("got (%v, %v), want (false, nil)", done, err)
	}

	submitted = true
	done, err = c.CheckAutoSubmit(context.Background())
	if err != nil || !done {
		t.Fatalf("got (%v, %v), want (true, nil)", done, err)
	}
}
