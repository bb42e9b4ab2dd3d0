// Package api is the HTTP client for the remote exam server. All four
// collaborator endpoints from the session engine's point of view live here:
// quiz fetch, answer save, submit, and the auto-submit status check.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/model"
)

// ErrQuizCompleted signals that the server considers this attempt finished
// (or the quiz unavailable). The caller must leave the exam entirely rather
// than render a broken quiz.
var ErrQuizCompleted = errors.New("quiz already completed")

// Client talks to the remote exam server.
type Client struct {
	baseURL string
	token   string
	quizID  uuid.UUID
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a Client for one quiz attempt.
func NewClient(baseURL, token string, quizID uuid.UUID, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		quizID:  quizID,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "api").Logger(),
	}
}

// FetchQuiz retrieves the quiz, its questions and the attempt record.
// HTTP 400/402/404 and a "Quiz already completed" message all map to
// ErrQuizCompleted — those sessions must be redirected away.
func (c *Client) FetchQuiz(ctx context.Context) (*model.QuizPayload, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/quizzes/%s/paper", c.quizID), nil)
	if err != nil {
		return nil, err
	}

	var payload model.QuizPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode quiz payload: %w", err)
	}
	return &payload, nil
}

// SaveResponses sends a coalesced patch of the latest answer per question.
// No response body contract is relied upon beyond HTTP success.
func (c *Client) SaveResponses(ctx context.Context, patch map[uuid.UUID]model.AnswerPayload) error {
	req := struct {
		QuizID    uuid.UUID                        `json:"quiz_id"`
		Responses map[uuid.UUID]model.AnswerPayload `json:"responses"`
	}{QuizID: c.quizID, Responses: patch}

	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/quizzes/%s/responses", c.quizID), req)
	return err
}

// Submit performs the terminal submission. Retries are expected to be
// idempotent server-side.
func (c *Client) Submit(ctx context.Context, responses map[uuid.UUID]model.AnswerPayload, violations string) error {
	req := struct {
		QuizID     uuid.UUID                        `json:"quiz_id"`
		Responses  map[uuid.UUID]model.AnswerPayload `json:"responses"`
		Violations string                           `json:"violations"`
	}{QuizID: c.quizID, Responses: responses, Violations: violations}

	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/quizzes/%s/submit", c.quizID), req)
	return err
}

// CheckAutoSubmit asks whether a server-side sweep (or another tab) already
// auto-submitted this attempt.
func (c *Client) CheckAutoSubmit(ctx context.Context) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/quizzes/%s/auto-submit-status", c.quizID), nil)
	if err != nil {
		return false, err
	}

	var resp struct {
		AutoSubmitted bool `json:"auto_submitted"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode status: %w", err)
	}
	return resp.AutoSubmitted, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusPaymentRequired, http.StatusNotFound:
		return nil, ErrQuizCompleted
	}
	if strings.Contains(string(body), "Quiz already completed") {
		return nil, ErrQuizCompleted
	}

	return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
}
