package cli

import (
	"context"
	"errors"
	"fmt"

	"study-app/internal/study"
)

func (a *app) runQuiz(ctx context.Context, moduleID int64) error {
	fmt.Fprintln(a.out, "Preparing questions...")
	sess, err := a.service.StartSession(ctx, moduleID)
	if err != nil {
		return err
	}
	return a.play(ctx, sess)
}

func (a *app) runResume(ctx context.Context, attemptID int64) error {
	sess, err := a.service.ResumeSession(ctx, attemptID)
	if err != nil {
		return err
	}
	state := sess.State()
	if state.Status == study.SessionInProgress {
		fmt.Fprintf(a.out, "Resuming attempt #%d at question %d of %d.\n", attemptID, state.Index+1, state.Total)
	}
	return a.play(ctx, sess)
}

// play drives a session to completion. Typing quit or running out of
// invalid answers leaves the attempt pending so it can be resumed.
func (a *app) play(ctx context.Context, sess *study.Session) error {
	state := sess.State()
	switch state.Status {
	case study.SessionEmptyQuestions:
		fmt.Fprintln(a.out, "Could not generate questions for this module. Try again later.")
		return nil
	case study.SessionFinished:
		a.printResult(state)
		return nil
	}

	for state.Status == study.SessionInProgress {
		a.printQuestion(state)

		answer, err := a.readAnswer()
		if err != nil {
			if errors.Is(err, errQuit) || errors.Is(err, errTooManyInvalid) {
				fmt.Fprintf(a.out, "Quiz paused. Continue later with: resume %d\n", state.AttemptID)
				return nil
			}
			return err
		}

		if _, err := sess.Select(answer); err != nil {
			return err
		}
		state, err = sess.Next(ctx)
		if err != nil {
			return err
		}
		a.printFeedback(state)
	}

	if state.Status == study.SessionFinished {
		a.printResult(state)
	}
	return nil
}

var errTooManyInvalid = errors.New("too many invalid answers")

func (a *app) readAnswer() (string, error) {
	for attempt := 0; attempt < a.maxInvalid; attempt++ {
		answer, ok, err := promptAnswer(a.reader, a.out)
		if err != nil {
			return "", err
		}
		if ok {
			return answer, nil
		}
		fmt.Fprintln(a.out, "Please enter A, B, C or D.")
	}
	return "", errTooManyInvalid
}

func (a *app) printQuestion(state study.SessionState) {
	if state.Question == nil {
		return
	}
	fmt.Fprintf(a.out, "\nQuestion %d/%d\n%s\n", state.Index+1, state.Total, state.Question.Text)
	for _, option := range state.Question.Options {
		fmt.Fprintf(a.out, "  %s. %s\n", option.Letter, option.Text)
	}
}

func (a *app) printFeedback(state study.SessionState) {
	feedback := state.LastAnswer
	if feedback == nil {
		return
	}
	if feedback.IsCorrect {
		fmt.Fprintln(a.out, "Correct!")
		return
	}
	fmt.Fprintf(a.out, "Wrong. The correct answer was %s.\n", feedback.CorrectAnswer)
}

func (a *app) printResult(state study.SessionState) {
	verdict := "Not passed"
	if state.Passed {
		verdict = "Passed"
	}
	fmt.Fprintf(a.out, "\nFinal score: %s/10 (%d of %d correct). %s.\n",
		formatScore(state.FinalScore), state.Score, state.Total, verdict)
}
