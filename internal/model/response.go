package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeAnswer is the coding-question payload.
type CodeAnswer struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// FileAnswer is the file-upload payload.
type FileAnswer struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// AnswerPayload is the discriminated answer value. Type names which field is
// meaningful; the others stay at their zero value. Keeping one struct rather
// than an interface keeps the payload directly marshalable for the store and
// the wire without a custom codec.
type AnswerPayload struct {
	Type QuestionType `json:"type"`

	Selected string              `json:"selected,omitempty"`  // single choice, true/false
	Choices  []string            `json:"choices,omitempty"`   // multi choice
	Blanks   map[int]string      `json:"blanks,omitempty"`    // blank index -> text
	Text     string              `json:"text,omitempty"`      // descriptive
	Code     *CodeAnswer         `json:"code,omitempty"`      // coding
	File     *FileAnswer         `json:"file,omitempty"`      // file upload
	Matches  map[string][]string `json:"matches,omitempty"`   // left id -> right ids
}

// IsEmpty reports whether the payload counts as "unanswered" for its type.
// An empty string, empty collection, or all-blank coding/file fields are all
// treated as no answer.
func (p AnswerPayload) IsEmpty() bool {
	switch p.Type {
	case QuestionTypeSingleChoice, QuestionTypeTrueFalse:
		return strings.TrimSpace(p.Selected) == ""
	case QuestionTypeMultiChoice:
		return len(p.Choices) == 0
	case QuestionTypeFillInBlank:
		for _, v := range p.Blanks {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	case QuestionTypeDescriptive:
		return strings.TrimSpace(p.Text) == ""
	case QuestionTypeCoding:
		return p.Code == nil || strings.TrimSpace(p.Code.Code) == ""
	case QuestionTypeFileUpload:
		return p.File == nil || p.File.FileURL == ""
	case QuestionTypeMatching:
		for _, rights := range p.Matches {
			if len(rights) > 0 {
				return false
			}
		}
		return true
	}
	return true
}

// Response is the student's answer to one question. At most one Response
// exists per question per session; every edit replaces the payload wholesale.
type Response struct {
	QuestionID uuid.UUID     `json:"question_id"`
	Answer     AnswerPayload `json:"answer"`
	Timestamp  time.Time     `json:"timestamp"`
}
