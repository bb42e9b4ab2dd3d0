package model

import "testing"

func TestAnswerPayloadIsEmpty(t *testing.T) {
	cases := []struct {
		name    string
		payload AnswerPayload
		want    bool
	}{
		{"single choice empty", AnswerPayload{Type: QuestionTypeSingleChoice}, true},
		{"single choice whitespace", AnswerPayload{Type: QuestionTypeSingleChoice, Selected: "  "}, true},
		{"single choice answered", AnswerPayload{Type: QuestionTypeSingleChoice, Selected: "B"}, false},
		{"true/false answered", AnswerPayload{Type: QuestionTypeTrueFalse, Selected: "true"}, false},
		{"multi choice empty", AnswerPayload{Type: QuestionTypeMultiChoice, Choices: []string{}}, true},
		{"multi choice answered", AnswerPayload{Type: QuestionTypeMultiChoice, Choices: []string{"A", "C"}}, false},
		{"blanks all empty", AnswerPayload{Type: QuestionTypeFillInBlank, Blanks: map[int]string{0: "", 1: " "}}, true},
		{"blanks one filled", AnswerPayload{Type: QuestionTypeFillInBlank, Blanks: map[int]string{0: "", 1: "42"}}, false},
		{"descriptive empty", AnswerPayload{Type: QuestionTypeDescriptive, Text: ""}, true},
		{"descriptive answered", AnswerPayload{Type: QuestionTypeDescriptive, Text: "essay"}, false},
		{"coding nil", AnswerPayload{Type: QuestionTypeCoding}, true},
		{"coding blank code", AnswerPayload{Type: QuestionTypeCoding, Code: &CodeAnswer{Code: "  ", Language: "go"}}, true},
		{"coding answered", AnswerPayload{Type: QuestionTypeCoding, Code: &CodeAnswer{Code: "package main", Language: "go"}}, false},
		{"file nil", AnswerPayload{Type: QuestionTypeFileUpload}, true},
		{"file no url", AnswerPayload{Type: QuestionTypeFileUpload, File: &FileAnswer{FileName: "a.pdf"}}, true},
		{"file uploaded", AnswerPayload{Type: QuestionTypeFileUpload, File: &FileAnswer{FileURL: "https://x/a.pdf"}}, false},
		{"matching empty lists", AnswerPayload{Type: QuestionTypeMatching, Matches: map[string][]string{"l1": {}}}, true},
		{"matching answered", AnswerPayload{Type: QuestionTypeMatching, Matches: map[string][]string{"l1": {"r2"}}}, false},
		{"unknown type", AnswerPayload{Type: "MYSTERY"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.payload.IsEmpty(); got != tc.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQuestionSanitized(t *testing.T) {
	q := Question{
		Text:        "What is 2+2?",
		AnswerKey:   []byte(`"4"`),
		Explanation: "basic arithmetic",
	}

	s := q.Sanitized()
	if s.AnswerKey != nil {
		t.Error("sanitized question still carries the answer key")
	}
	if s.Explanation != "" {
		t.Error("sanitized question still carries the explanation")
	}
	if s.Text != q.Text {
		t.Error("sanitization must not touch the question text")
	}
	if q.AnswerKey == nil {
		t.Error("sanitization mutated the original question")
	}
}
