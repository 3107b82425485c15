package model

import "github.com/google/uuid"

// Question is one entry of the static multiple-choice pool. Immutable.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
}

// QuestionForStudent is a question with the correct answer stripped, safe
// to hand to the test-taking client.
type QuestionForStudent struct {
	ID      uuid.UUID `json:"id"`
	Prompt  string    `json:"prompt"`
	Options []string  `json:"options"`
}

// ForStudent strips the correct answer.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}

// StripAnswers converts a sampled question set for delivery to a student.
func StripAnswers(questions []Question) []QuestionForStudent {
	out := make([]QuestionForStudent, len(questions))
	for i, q := range questions {
		out[i] = q.ForStudent()
	}
	return out
}

// AnswerRequest selects (or re-selects) an option for one question of the
// active test session. Changing an answer before submission is allowed.
type AnswerRequest struct {
	QuestionIndex int `json:"questionIndex" binding:"min=0"`
	OptionIndex   int `json:"optionIndex" binding:"min=0"`
}
