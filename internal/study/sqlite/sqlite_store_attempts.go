package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"study-app/internal/study"
)

const attemptColumns = `id, module_id, status, score, total_questions, correct_answers, created_at_unix, current_question_index`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (study.TestAttempt, error) {
	var (
		item          study.TestAttempt
		status        string
		createdAtUnix int64
	)
	if err := row.Scan(
		&item.ID,
		&item.ModuleID,
		&status,
		&item.Score,
		&item.TotalQuestions,
		&item.CorrectAnswers,
		&createdAtUnix,
		&item.CurrentQuestionIndex,
	); err != nil {
		return study.TestAttempt{}, err
	}
	item.Status = study.AttemptStatus(status)
	item.CreatedAt = time.Unix(0, createdAtUnix).UTC()
	return item, nil
}

func (s *SQLiteStore) CreateAttempt(ctx context.Context, attempt study.TestAttempt) (study.TestAttempt, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return study.TestAttempt{}, err
	}
	defer release()

	if attempt.Status == "" {
		attempt.Status = study.AttemptPending
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	res, err := db.ExecContext(
		ctx,
		`INSERT INTO test_attempts (module_id, status, score, total_questions, correct_answers, created_at_unix, current_question_index)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.ModuleID,
		string(attempt.Status),
		attempt.Score,
		attempt.TotalQuestions,
		attempt.CorrectAnswers,
		attempt.CreatedAt.UnixNano(),
		attempt.CurrentQuestionIndex,
	)
	if err != nil {
		return study.TestAttempt{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return study.TestAttempt{}, err
	}
	attempt.ID = id
	attempt.CreatedAt = time.Unix(0, attempt.CreatedAt.UnixNano()).UTC()
	return attempt, nil
}

func (s *SQLiteStore) GetAttempt(ctx context.Context, attemptID int64) (study.TestAttempt, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return study.TestAttempt{}, err
	}
	defer release()

	item, err := scanAttempt(db.QueryRowContext(
		ctx,
		`SELECT `+attemptColumns+` FROM test_attempts WHERE id = ?`,
		attemptID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return study.TestAttempt{}, study.ErrAttemptNotFound
	}
	return item, err
}

// ListAttempts returns the module's attempts, newest first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, moduleID int64) ([]study.TestAttempt, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(
		ctx,
		`SELECT `+attemptColumns+`
		 FROM test_attempts
		 WHERE module_id = ?
		 ORDER BY created_at_unix DESC, id DESC`,
		moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]study.TestAttempt, 0)
	for rows.Next() {
		item, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, item)
	}
	return attempts, rows.Err()
}

// RecordAnswer stores the answer and the attempt's progress together so a
// resumed attempt never disagrees with its answers.
func (s *SQLiteStore) RecordAnswer(ctx context.Context, answer study.UserAnswer, nextIndex, correctSoFar int) (study.UserAnswer, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`UPDATE test_attempts
			 SET current_question_index = ?, correct_answers = ?
			 WHERE id = ? AND status = ?`,
			nextIndex,
			correctSoFar,
			answer.AttemptID,
			string(study.AttemptPending),
		)
		if err != nil {
			return err
		}
		updated, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if updated == 0 {
			var status string
			err := tx.QueryRowContext(ctx, `SELECT status FROM test_attempts WHERE id = ?`, answer.AttemptID).Scan(&status)
			if errors.Is(err, sql.ErrNoRows) {
				return study.ErrAttemptNotFound
			}
			if err != nil {
				return err
			}
			return study.ErrAttemptCompleted
		}

		res, err = tx.ExecContext(
			ctx,
			`INSERT INTO user_answers (attempt_id, question_id, selected_answer, is_correct)
			 VALUES (?, ?, ?, ?)`,
			answer.AttemptID,
			answer.QuestionID,
			answer.SelectedAnswer,
			boolToInt(answer.IsCorrect),
		)
		if err != nil {
			return err
		}
		answer.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return study.UserAnswer{}, err
	}
	return answer, nil
}

func (s *SQLiteStore) CompleteAttempt(ctx context.Context, attemptID int64, correct, total int, score float64) error {
	db, release, err := s.lease(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := db.ExecContext(
		ctx,
		`UPDATE test_attempts
		 SET status = ?, score = ?, correct_answers = ?, total_questions = ?, current_question_index = ?
		 WHERE id = ?`,
		string(study.AttemptCompleted),
		score,
		correct,
		total,
		total,
		attemptID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return study.ErrAttemptNotFound
	}
	return nil
}

func (s *SQLiteStore) ListAnswers(ctx context.Context, attemptID int64) ([]study.UserAnswer, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(
		ctx,
		`SELECT id, attempt_id, question_id, selected_answer, is_correct
		 FROM user_answers
		 WHERE attempt_id = ?
		 ORDER BY id ASC`,
		attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make([]study.UserAnswer, 0)
	for rows.Next() {
		var (
			item      study.UserAnswer
			isCorrect int
		)
		if err := rows.Scan(&item.ID, &item.AttemptID, &item.QuestionID, &item.SelectedAnswer, &isCorrect); err != nil {
			return nil, err
		}
		item.IsCorrect = isCorrect != 0
		answers = append(answers, item)
	}
	return answers, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
