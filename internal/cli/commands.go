package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"study-app/internal/completion"
	"study-app/internal/study"
)

func (a *app) runSubjects(ctx context.Context) error {
	subjects, err := a.service.ListSubjects(ctx)
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		fmt.Fprintln(a.out, "No subjects yet.")
		return nil
	}
	for _, subject := range subjects {
		fmt.Fprintf(a.out, "%d. %s\n", subject.ID, subject.Name)
	}
	return nil
}

func (a *app) runModules(ctx context.Context, subjectID int64) error {
	subject, err := a.service.GetSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	modules, err := a.service.ListModules(ctx, subjectID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\n", subject.Name)
	if len(modules) == 0 {
		fmt.Fprintln(a.out, "  no modules")
		return nil
	}
	for _, module := range modules {
		fmt.Fprintf(a.out, "  %d. %s\n", module.ID, module.Title)
	}
	return nil
}

func (a *app) runModule(ctx context.Context, moduleID int64) error {
	detail, err := a.service.GetModuleDetail(ctx, moduleID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\n", detail.Module.Title)
	if detail.Module.Description != "" {
		fmt.Fprintf(a.out, "%s\n", detail.Module.Description)
	}
	for i, sub := range detail.Submodules {
		fmt.Fprintf(a.out, "\n%d) %s\n%s\n", i+1, sub.Title, sub.Body)
	}
	return nil
}

func (a *app) runRegenerate(ctx context.Context, moduleID int64) error {
	confirmed, err := promptYesNo(a.reader, a.out, "This replaces the question set and deletes its attempts. Continue? (y/n): ")
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	fmt.Fprintln(a.out, "Generating questions...")
	prov, err := a.service.RegenerateQuestions(ctx, moduleID)
	if err != nil {
		return err
	}
	if prov.Empty() {
		fmt.Fprintf(a.out, "Could not generate questions (%s). Try again later.\n", prov.Source)
		return nil
	}
	fmt.Fprintf(a.out, "Generated %d questions.\n", len(prov.Questions))
	return nil
}

func (a *app) runAttempts(ctx context.Context, moduleID int64) error {
	attempts, err := a.service.ListAttempts(ctx, moduleID)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(a.out, "No attempts yet.")
		return nil
	}

	for _, attempt := range attempts {
		created := attempt.CreatedAt.Local().Format("2006-01-02 15:04")
		if attempt.Status == study.AttemptCompleted {
			fmt.Fprintf(a.out, "#%d  %s  score %s/10  (%d/%d)\n",
				attempt.ID, created, formatScore(attempt.Score), attempt.CorrectAnswers, attempt.TotalQuestions)
			continue
		}
		fmt.Fprintf(a.out, "#%d  %s  in progress  (%d/%d answered)\n",
			attempt.ID, created, attempt.CurrentQuestionIndex, attempt.TotalQuestions)
	}
	return nil
}

func (a *app) runReview(ctx context.Context, attemptID int64) error {
	review, err := a.service.AssembleReview(ctx, attemptID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Review of attempt #%d, %s\n", review.Attempt.ID, review.Module.Title)
	if review.Attempt.Status == study.AttemptCompleted {
		verdict := "not passed"
		if review.Passed {
			verdict = "passed"
		}
		fmt.Fprintf(a.out, "Score: %s/10 (%s)\n", formatScore(review.Attempt.Score), verdict)
	}
	if len(review.Items) == 0 {
		fmt.Fprintln(a.out, "No answers recorded.")
		return nil
	}

	for i, item := range review.Items {
		mark := "wrong"
		if item.IsCorrect {
			mark = "correct"
		}
		fmt.Fprintf(a.out, "\n%d. %s\n", i+1, item.Question.Text)
		fmt.Fprintf(a.out, "   your answer: %s (%s)\n", optionDisplay(item.Question.Options, item.SelectedAnswer), mark)
		if !item.IsCorrect {
			fmt.Fprintf(a.out, "   correct answer: %s\n", optionDisplay(item.Question.Options, item.CorrectAnswer))
		}
	}
	return nil
}

// runChat keeps the conversation for the length of the command only.
func (a *app) runChat(ctx context.Context) error {
	if a.chat == nil {
		return completion.ErrNotConfigured
	}

	fmt.Fprintln(a.out, "Chat started. Send an empty line or /exit to leave.")
	var history []completion.Message
	for {
		fmt.Fprint(a.out, "you> ")
		line, err := a.reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if err != nil && text == "" {
			return err
		}
		if text == "" || text == "/exit" {
			return nil
		}

		history = append(history, completion.Message{Role: "user", Content: text})
		reply, chatErr := a.chat.Chat(ctx, history)
		if chatErr != nil {
			// drop the unanswered turn so the user can retry
			history = history[:len(history)-1]
			fmt.Fprintf(a.out, "error: %v\n", describeError(chatErr))
			if errors.Is(chatErr, completion.ErrNotConfigured) {
				return nil
			}
			continue
		}
		history = append(history, reply)
		fmt.Fprintf(a.out, "assistant> %s\n", reply.Content)
	}
}

func (a *app) runBackup(ctx context.Context, path string) error {
	if a.backups == nil {
		return errors.New("backups are unavailable")
	}
	written, err := a.backups.BackupToFile(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Backup written to %s (%d bytes).\n", path, written)
	return nil
}

func (a *app) runRestore(ctx context.Context, path string) error {
	if a.backups == nil {
		return errors.New("backups are unavailable")
	}
	confirmed, err := promptYesNo(a.reader, a.out, "Restoring replaces all current data. Continue? (y/n): ")
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.backups.RestoreFromFile(ctx, path); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Restore complete.")
	return nil
}
