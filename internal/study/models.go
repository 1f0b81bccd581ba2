package study

import (
	"errors"
	"time"
)

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptCompleted = errors.New("attempt already completed")
	ErrInvalidAnswer    = errors.New("answer must be one of A, B, C or D")
	ErrNoSelection      = errors.New("select an answer before continuing")
	ErrSessionNotActive = errors.New("quiz session is not in progress")
	ErrSessionFinished  = errors.New("quiz session already finished")
	ErrQuestionsExist   = errors.New("module already has a question set")
)

type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Module struct {
	ID          int64  `json:"id"`
	SubjectID   int64  `json:"subject_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Submodule struct {
	ID       int64  `json:"id"`
	ModuleID int64  `json:"module_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

type ModuleDetail struct {
	Module     Module      `json:"module"`
	Submodules []Submodule `json:"submodules"`
}

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type Question struct {
	ID            int64
	ModuleID      int64
	Text          string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectAnswer string
}

func (q Question) Options() []Option {
	return []Option{
		{Letter: "A", Text: q.OptionA},
		{Letter: "B", Text: q.OptionB},
		{Letter: "C", Text: q.OptionC},
		{Letter: "D", Text: q.OptionD},
	}
}

// OptionText returns the text behind letter, or "" for an unknown letter.
func (q Question) OptionText(letter string) string {
	for _, option := range q.Options() {
		if option.Letter == letter {
			return option.Text
		}
	}
	return ""
}

// PublicQuestion is what a quiz taker sees before answering.
type PublicQuestion struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: q.Options()}
}

type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptCompleted AttemptStatus = "completed"
)

type TestAttempt struct {
	ID                   int64         `json:"id"`
	ModuleID             int64         `json:"module_id"`
	Status               AttemptStatus `json:"status"`
	Score                float64       `json:"score"`
	TotalQuestions       int           `json:"total_questions"`
	CorrectAnswers       int           `json:"correct_answers"`
	CreatedAt            time.Time     `json:"created_at"`
	CurrentQuestionIndex int           `json:"current_question_index"`
}

type UserAnswer struct {
	ID             int64  `json:"id"`
	AttemptID      int64  `json:"attempt_id"`
	QuestionID     int64  `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	IsCorrect      bool   `json:"is_correct"`
}
