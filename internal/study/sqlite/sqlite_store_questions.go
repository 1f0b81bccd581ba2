package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"study-app/internal/completion"
	"study-app/internal/study"
)

func (s *SQLiteStore) ListQuestions(ctx context.Context, moduleID int64) ([]study.Question, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(
		ctx,
		`SELECT id, module_id, question_text, option_a, option_b, option_c, option_d, correct_answer
		 FROM questions
		 WHERE module_id = ?
		 ORDER BY id ASC`,
		moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]study.Question, 0)
	for rows.Next() {
		var q study.Question
		if err := rows.Scan(&q.ID, &q.ModuleID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// InsertQuestions stores a generated set in one transaction. It refuses to
// add to a module that already has questions so a set is never mixed with
// another.
func (s *SQLiteStore) InsertQuestions(ctx context.Context, moduleID int64, drafts []completion.QuestionDraft) ([]study.Question, error) {
	if len(drafts) == 0 {
		return nil, errors.New("no questions to insert")
	}

	questions := make([]study.Question, 0, len(drafts))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var modules, existing int
		if err := tx.QueryRowContext(
			ctx,
			`SELECT (SELECT COUNT(*) FROM modules WHERE id = ?), (SELECT COUNT(*) FROM questions WHERE module_id = ?)`,
			moduleID,
			moduleID,
		).Scan(&modules, &existing); err != nil {
			return err
		}
		if modules == 0 {
			return study.ErrModuleNotFound
		}
		if existing > 0 {
			return study.ErrQuestionsExist
		}

		for _, draft := range drafts {
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO questions (module_id, question_text, option_a, option_b, option_c, option_d, correct_answer)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				moduleID,
				draft.QuestionText,
				draft.OptionA,
				draft.OptionB,
				draft.OptionC,
				draft.OptionD,
				draft.CorrectAnswer,
			)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			questions = append(questions, study.Question{
				ID:            id,
				ModuleID:      moduleID,
				Text:          draft.QuestionText,
				OptionA:       draft.OptionA,
				OptionB:       draft.OptionB,
				OptionC:       draft.OptionC,
				OptionD:       draft.OptionD,
				CorrectAnswer: draft.CorrectAnswer,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// DeleteQuestions drops the module's attempts and questions; answers follow
// through the cascades.
func (s *SQLiteStore) DeleteQuestions(ctx context.Context, moduleID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM test_attempts WHERE module_id = ?`, moduleID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE module_id = ?`, moduleID)
		return err
	})
}
