package study

import "context"

type ReviewedQuestion struct {
	Question       PublicQuestion `json:"question"`
	CorrectAnswer  string         `json:"correct_answer"`
	SelectedAnswer string         `json:"selected_answer"`
	IsCorrect      bool           `json:"is_correct"`
}

type Review struct {
	Attempt TestAttempt        `json:"attempt"`
	Module  Module             `json:"module"`
	Items   []ReviewedQuestion `json:"items"`
	Passed  bool               `json:"passed"`
}

// AssembleReview pairs an attempt's answers with their questions. Answers
// whose question no longer exists are left out; items follow the module's
// question order.
func (s *Service) AssembleReview(ctx context.Context, attemptID int64) (Review, error) {
	attempt, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return Review{}, err
	}
	module, err := s.repo.GetModule(ctx, attempt.ModuleID)
	if err != nil {
		return Review{}, err
	}
	questions, err := s.repo.ListQuestions(ctx, attempt.ModuleID)
	if err != nil {
		return Review{}, err
	}
	answers, err := s.repo.ListAnswers(ctx, attemptID)
	if err != nil {
		return Review{}, err
	}

	return Review{
		Attempt: attempt,
		Module:  module,
		Items:   joinAnswers(questions, answers),
		Passed:  attempt.Status == AttemptCompleted && Passed(attempt.Score),
	}, nil
}

func joinAnswers(questions []Question, answers []UserAnswer) []ReviewedQuestion {
	byQuestion := make(map[int64]UserAnswer, len(answers))
	for _, answer := range answers {
		if _, seen := byQuestion[answer.QuestionID]; !seen {
			byQuestion[answer.QuestionID] = answer
		}
	}

	items := make([]ReviewedQuestion, 0, len(answers))
	for _, question := range questions {
		answer, ok := byQuestion[question.ID]
		if !ok {
			continue
		}
		items = append(items, ReviewedQuestion{
			Question:       question.Public(),
			CorrectAnswer:  question.CorrectAnswer,
			SelectedAnswer: answer.SelectedAnswer,
			IsCorrect:      answer.IsCorrect,
		})
	}
	return items
}
