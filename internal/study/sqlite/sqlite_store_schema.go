package sqlite

import (
	"context"
	"database/sql"
)

func initSchema(ctx context.Context, db *sql.DB) error {
	// Deletes cascade subject -> module -> {submodule, question, attempt} and
	// attempt/question -> answer, so removing a module or its question set
	// needs a single statement.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS subjects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS modules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS submodules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			module_id INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			module_id INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
			question_text TEXT NOT NULL,
			option_a TEXT NOT NULL,
			option_b TEXT NOT NULL,
			option_c TEXT NOT NULL,
			option_d TEXT NOT NULL,
			correct_answer TEXT NOT NULL CHECK (correct_answer IN ('A', 'B', 'C', 'D'))
		);`,
		`CREATE TABLE IF NOT EXISTS test_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			module_id INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'pending',
			score REAL NOT NULL DEFAULT 0,
			total_questions INTEGER NOT NULL,
			correct_answers INTEGER NOT NULL DEFAULT 0,
			created_at_unix INTEGER NOT NULL,
			current_question_index INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS user_answers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_id INTEGER NOT NULL REFERENCES test_attempts(id) ON DELETE CASCADE,
			question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			selected_answer TEXT NOT NULL,
			is_correct INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_modules_subject ON modules(subject_id);`,
		`CREATE INDEX IF NOT EXISTS idx_submodules_module ON submodules(module_id);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_module ON questions(module_id);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_module_created ON test_attempts(module_id, created_at_unix DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_attempt ON user_answers(attempt_id);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_question ON user_answers(question_id);`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
