package config

import (
	"fmt"
)

// StoreKeyStruct builds the namespaced keys for the local answer store. Every
// key is scoped by both quiz and student so two sessions sharing one device
// (or one browser profile) can never read each other's slices.
type StoreKeyStruct struct{}

func NewStoreKeyStruct() *StoreKeyStruct {
	return &StoreKeyStruct{}
}

// SessionPrefix returns the common prefix for every slice of one session.
// Clear operations remove everything under this prefix.
func (r *StoreKeyStruct) SessionPrefix(quizID, studentID string) string {
	return fmt.Sprintf("quiz_%s_%s_", quizID, studentID)
}

// AnswersKey returns the key for the session's full response map.
func (r *StoreKeyStruct) AnswersKey(quizID, studentID string) string {
	return r.SessionPrefix(quizID, studentID) + "answers"
}

// ViolationsKey returns the key for the session's violation log.
func (r *StoreKeyStruct) ViolationsKey(quizID, studentID string) string {
	return r.SessionPrefix(quizID, studentID) + "violations"
}

// FlagsKey returns the key for per-question visited/marked flags.
func (r *StoreKeyStruct) FlagsKey(quizID, studentID string) string {
	return r.SessionPrefix(quizID, studentID) + "flags"
}

// MetadataKey returns the key for the session's timer/submission metadata.
func (r *StoreKeyStruct) MetadataKey(quizID, studentID string) string {
	return r.SessionPrefix(quizID, studentID) + "meta"
}

// QuizKey returns the key for the cached quiz fetched from the server,
// used for offline resume.
func (r *StoreKeyStruct) QuizKey(quizID, studentID string) string {
	return r.SessionPrefix(quizID, studentID) + "quiz"
}

// QuestionsKey returns the key for the cached question list.
func (r *StoreKeyStruct) QuestionsKey(quizID, studentID string) string {
	return r.SessionPrefix(quizID, studentID) + "questions"
}

// EditorFilesKey returns the key for scratch editor contents (calculator,
// code drafts). Not part of the graded submission.
func (r *StoreKeyStruct) EditorFilesKey(quizID, studentID string) string {
	return r.SessionPrefix(quizID, studentID) + "editorFiles"
}

var StoreKey = NewStoreKeyStruct()
