package study

import (
	"context"

	"study-app/internal/completion"
)

type ContentRepository interface {
	CountSubjects(ctx context.Context) (int, error)
	SeedContent(ctx context.Context, subjects []SeedSubject) error
	ListSubjects(ctx context.Context) ([]Subject, error)
	GetSubject(ctx context.Context, subjectID int64) (Subject, error)
	ListModules(ctx context.Context, subjectID int64) ([]Module, error)
	GetModule(ctx context.Context, moduleID int64) (Module, error)
	ListSubmodules(ctx context.Context, moduleID int64) ([]Submodule, error)
	DeleteModule(ctx context.Context, moduleID int64) error
}

type QuestionRepository interface {
	ListQuestions(ctx context.Context, moduleID int64) ([]Question, error)
	// InsertQuestions stores the whole set or nothing.
	InsertQuestions(ctx context.Context, moduleID int64, drafts []completion.QuestionDraft) ([]Question, error)
	// DeleteQuestions removes the module's questions together with its attempts.
	DeleteQuestions(ctx context.Context, moduleID int64) error
}

type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt TestAttempt) (TestAttempt, error)
	GetAttempt(ctx context.Context, attemptID int64) (TestAttempt, error)
	ListAttempts(ctx context.Context, moduleID int64) ([]TestAttempt, error)
	// RecordAnswer stores answer and moves the attempt to nextIndex in one step.
	RecordAnswer(ctx context.Context, answer UserAnswer, nextIndex, correctSoFar int) (UserAnswer, error)
	CompleteAttempt(ctx context.Context, attemptID int64, correct, total int, score float64) error
	ListAnswers(ctx context.Context, attemptID int64) ([]UserAnswer, error)
}

type Repository interface {
	ContentRepository
	QuestionRepository
	AttemptRepository
}

// QuestionGenerator is satisfied by *completion.Client.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, moduleID int64, content string) completion.Result
}
