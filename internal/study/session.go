package study

import (
	"context"
	"sync"
	"time"
)

type SessionStatus string

const (
	SessionLoading        SessionStatus = "loading"
	SessionInProgress     SessionStatus = "in_progress"
	SessionFinished       SessionStatus = "finished"
	SessionEmptyQuestions SessionStatus = "empty_questions"
)

// AnswerFeedback describes the question that was just scored.
type AnswerFeedback struct {
	QuestionID    int64  `json:"question_id"`
	Selected      string `json:"selected"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// SessionState is an immutable snapshot handed to front-ends.
type SessionState struct {
	Status       SessionStatus   `json:"status"`
	ModuleID     int64           `json:"module_id"`
	AttemptID    int64           `json:"attempt_id,omitempty"`
	Index        int             `json:"index"`
	Total        int             `json:"total"`
	Question     *PublicQuestion `json:"question,omitempty"`
	Selected     string          `json:"selected,omitempty"`
	Score        int             `json:"score"`
	CanAdvance   bool            `json:"can_advance"`
	IsLast       bool            `json:"is_last"`
	FinalScore   float64         `json:"final_score"`
	Passed       bool            `json:"passed"`
	LastAnswer   *AnswerFeedback `json:"last_answer,omitempty"`
	Provisioning ProvisionSource `json:"provisioning,omitempty"`
}

// Session walks one attempt through its questions. It is safe for use from
// several goroutines, but an attempt is expected to have one driver.
type Session struct {
	svc      *Service
	moduleID int64

	mu        sync.Mutex
	status    SessionStatus
	source    ProvisionSource
	attempt   TestAttempt
	questions []Question
	index     int
	selected  string
	score     int
	last      *AnswerFeedback
	// finishing is set once the last answer is stored but the attempt is
	// not yet completed.
	finishing bool
}

func (s *Service) NewSession(moduleID int64) *Session {
	return &Session{svc: s, moduleID: moduleID, status: SessionLoading}
}

// StartSession provisions questions for the module and opens a new attempt.
// A module without questions yields a session in SessionEmptyQuestions and
// no attempt.
func (s *Service) StartSession(ctx context.Context, moduleID int64) (*Session, error) {
	sess := s.NewSession(moduleID)
	if _, err := sess.Load(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load performs the Loading transition.
func (sess *Session) Load(ctx context.Context) (SessionState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.status != SessionLoading {
		return sess.stateLocked(), nil
	}

	svc := sess.svc
	prov, err := svc.EnsureQuestions(ctx, sess.moduleID)
	if err != nil {
		return sess.stateLocked(), err
	}
	sess.source = prov.Source
	if prov.Empty() {
		sess.status = SessionEmptyQuestions
		return sess.stateLocked(), nil
	}

	questions := svc.shuffle(prov.Questions)
	attempt, err := svc.repo.CreateAttempt(ctx, TestAttempt{
		ModuleID:       sess.moduleID,
		Status:         AttemptPending,
		TotalQuestions: len(questions),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return sess.stateLocked(), err
	}

	sess.attempt = attempt
	sess.questions = questions
	sess.status = SessionInProgress
	svc.register(sess)
	svc.broker.Publish(TopicAttempts, attempt.ID)
	svc.log.Info("quiz started", "module_id", sess.moduleID, "attempt_id", attempt.ID, "questions", len(questions))
	return sess.stateLocked(), nil
}

func (sess *Session) State() SessionState {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.stateLocked()
}

func (sess *Session) AttemptID() int64 {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.attempt.ID
}

// Select records a selection for the current question without advancing.
func (sess *Session) Select(answer string) (SessionState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.activeLocked(); err != nil {
		return sess.stateLocked(), err
	}
	letter := normalizeLetter(answer)
	if letter == "" {
		return sess.stateLocked(), ErrInvalidAnswer
	}
	sess.selected = letter
	return sess.stateLocked(), nil
}

// Next scores the current question, stores the answer and moves on, or
// finishes the attempt after the last question.
func (sess *Session) Next(ctx context.Context) (SessionState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.activeLocked(); err != nil {
		return sess.stateLocked(), err
	}
	svc := sess.svc
	if sess.finishing {
		// The last answer is already stored; only the completion is retried.
		if err := sess.finishLocked(ctx); err != nil {
			return sess.stateLocked(), err
		}
		svc.broker.Publish(TopicAttempts, sess.attempt.ID)
		return sess.stateLocked(), nil
	}
	if sess.selected == "" {
		return sess.stateLocked(), ErrNoSelection
	}

	question := sess.questions[sess.index]
	correct := sess.selected == question.CorrectAnswer
	score := sess.score
	if correct {
		score++
	}

	if _, err := svc.repo.RecordAnswer(ctx, UserAnswer{
		AttemptID:      sess.attempt.ID,
		QuestionID:     question.ID,
		SelectedAnswer: sess.selected,
		IsCorrect:      correct,
	}, sess.index+1, score); err != nil {
		return sess.stateLocked(), err
	}

	sess.score = score
	sess.last = &AnswerFeedback{
		QuestionID:    question.ID,
		Selected:      sess.selected,
		CorrectAnswer: question.CorrectAnswer,
		IsCorrect:     correct,
	}
	sess.selected = ""

	if sess.index == len(sess.questions)-1 {
		sess.finishing = true
		if err := sess.finishLocked(ctx); err != nil {
			return sess.stateLocked(), err
		}
	} else {
		sess.index++
	}

	svc.broker.Publish(TopicAttempts, sess.attempt.ID)
	return sess.stateLocked(), nil
}

func (sess *Session) activeLocked() error {
	switch sess.status {
	case SessionInProgress:
		return nil
	case SessionFinished:
		return ErrSessionFinished
	default:
		return ErrSessionNotActive
	}
}

func (sess *Session) finishLocked(ctx context.Context) error {
	svc := sess.svc
	total := len(sess.questions)
	final := ScoreOutOfTen(sess.score, total)
	if err := svc.repo.CompleteAttempt(ctx, sess.attempt.ID, sess.score, total, final); err != nil {
		return err
	}
	sess.attempt.Status = AttemptCompleted
	sess.attempt.Score = final
	sess.attempt.CorrectAnswers = sess.score
	sess.status = SessionFinished
	sess.finishing = false
	svc.unregister(sess.attempt.ID)
	svc.log.Info("quiz finished", "module_id", sess.moduleID, "attempt_id", sess.attempt.ID, "correct", sess.score, "total", total, "score", final)
	return nil
}

func (sess *Session) stateLocked() SessionState {
	state := SessionState{
		Status:       sess.status,
		ModuleID:     sess.moduleID,
		AttemptID:    sess.attempt.ID,
		Index:        sess.index,
		Total:        len(sess.questions),
		Score:        sess.score,
		LastAnswer:   sess.last,
		Provisioning: sess.source,
	}

	switch sess.status {
	case SessionInProgress:
		question := sess.questions[sess.index].Public()
		state.Question = &question
		state.Selected = sess.selected
		state.CanAdvance = sess.selected != "" || sess.finishing
		state.IsLast = sess.index == len(sess.questions)-1
	case SessionFinished:
		state.FinalScore = sess.attempt.Score
		state.Passed = Passed(state.FinalScore)
	}
	return state
}
