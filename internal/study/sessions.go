package study

import "context"

func (s *Service) register(sess *Session) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[sess.attempt.ID] = sess
}

func (s *Service) unregister(attemptID int64) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, attemptID)
}

// dropModuleSessions forgets live sessions whose attempts were deleted.
func (s *Service) dropModuleSessions(moduleID int64) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for id, sess := range s.sessions {
		if sess.moduleID == moduleID {
			delete(s.sessions, id)
		}
	}
}

// LiveSession returns the in-memory session driving attemptID, if any.
func (s *Service) LiveSession(attemptID int64) (*Session, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[attemptID]
	return sess, ok
}

// ResumeSession continues a pending attempt. Answered questions keep the
// order they were answered in; the rest are shuffled after them.
func (s *Service) ResumeSession(ctx context.Context, attemptID int64) (*Session, error) {
	if sess, ok := s.LiveSession(attemptID); ok {
		return sess, nil
	}

	attempt, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == AttemptCompleted {
		return nil, ErrAttemptCompleted
	}

	questions, err := s.repo.ListQuestions(ctx, attempt.ModuleID)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ordered := make([]Question, 0, len(questions))
	answered := make(map[int64]bool, len(answers))
	score := 0
	for _, answer := range answers {
		q, ok := byID[answer.QuestionID]
		if !ok || answered[q.ID] {
			continue
		}
		answered[q.ID] = true
		ordered = append(ordered, q)
		if answer.IsCorrect {
			score++
		}
	}
	index := len(ordered)

	remaining := make([]Question, 0, len(questions)-index)
	for _, q := range questions {
		if !answered[q.ID] {
			remaining = append(remaining, q)
		}
	}
	ordered = append(ordered, s.shuffle(remaining)...)

	sess := &Session{
		svc:       s,
		moduleID:  attempt.ModuleID,
		status:    SessionInProgress,
		source:    SourceCached,
		attempt:   attempt,
		questions: ordered,
		index:     index,
		score:     score,
	}

	switch {
	case len(ordered) == 0:
		sess.status = SessionEmptyQuestions
		return sess, nil
	case index >= len(ordered):
		// Every question was answered before the attempt was closed.
		sess.index = len(ordered) - 1
		sess.mu.Lock()
		err := sess.finishLocked(ctx)
		sess.mu.Unlock()
		if err != nil {
			return nil, err
		}
		s.broker.Publish(TopicAttempts, attemptID)
		return sess, nil
	}

	s.sessionsMu.Lock()
	if existing, ok := s.sessions[attemptID]; ok {
		s.sessionsMu.Unlock()
		return existing, nil
	}
	s.sessions[attemptID] = sess
	s.sessionsMu.Unlock()

	s.log.Info("quiz resumed", "module_id", attempt.ModuleID, "attempt_id", attemptID, "index", index, "questions", len(ordered))
	return sess, nil
}

// AttemptState reports a live session's state, or the final state of a
// completed attempt. A pending attempt without a live session must be
// resumed first.
func (s *Service) AttemptState(ctx context.Context, attemptID int64) (SessionState, error) {
	if sess, ok := s.LiveSession(attemptID); ok {
		return sess.State(), nil
	}

	attempt, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return SessionState{}, err
	}
	if attempt.Status != AttemptCompleted {
		return SessionState{}, ErrSessionNotActive
	}
	return SessionState{
		Status:     SessionFinished,
		ModuleID:   attempt.ModuleID,
		AttemptID:  attempt.ID,
		Index:      attempt.CurrentQuestionIndex,
		Total:      attempt.TotalQuestions,
		Score:      attempt.CorrectAnswers,
		FinalScore: attempt.Score,
		Passed:     Passed(attempt.Score),
	}, nil
}

// ResetSessions forgets every live session, for when the store underneath
// was replaced wholesale.
func (s *Service) ResetSessions() {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions = make(map[int64]*Session)
}
