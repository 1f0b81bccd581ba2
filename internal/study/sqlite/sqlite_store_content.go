package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"study-app/internal/study"
)

func (s *SQLiteStore) CountSubjects(ctx context.Context) (int, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var count int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&count)
	return count, err
}

// SeedContent inserts the catalogue in one transaction; submodule ids follow
// catalogue order so creation order is preserved.
func (s *SQLiteStore) SeedContent(ctx context.Context, subjects []study.SeedSubject) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, subject := range subjects {
			res, err := tx.ExecContext(ctx, `INSERT INTO subjects (name) VALUES (?)`, subject.Name)
			if err != nil {
				return err
			}
			subjectID, err := res.LastInsertId()
			if err != nil {
				return err
			}

			for _, module := range subject.Modules {
				res, err := tx.ExecContext(
					ctx,
					`INSERT INTO modules (subject_id, title, description) VALUES (?, ?, ?)`,
					subjectID,
					module.Title,
					module.Description,
				)
				if err != nil {
					return err
				}
				moduleID, err := res.LastInsertId()
				if err != nil {
					return err
				}

				for _, sub := range module.Submodules {
					if _, err := tx.ExecContext(
						ctx,
						`INSERT INTO submodules (module_id, title, body) VALUES (?, ?, ?)`,
						moduleID,
						sub.Title,
						sub.Body,
					); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListSubjects(ctx context.Context) ([]study.Subject, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `SELECT id, name FROM subjects ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := make([]study.Subject, 0)
	for rows.Next() {
		var item study.Subject
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, item)
	}
	return subjects, rows.Err()
}

func (s *SQLiteStore) GetSubject(ctx context.Context, subjectID int64) (study.Subject, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return study.Subject{}, err
	}
	defer release()

	var item study.Subject
	err = db.QueryRowContext(ctx, `SELECT id, name FROM subjects WHERE id = ?`, subjectID).Scan(&item.ID, &item.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return study.Subject{}, study.ErrSubjectNotFound
	}
	return item, err
}

func (s *SQLiteStore) ListModules(ctx context.Context, subjectID int64) ([]study.Module, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(
		ctx,
		`SELECT id, subject_id, title, description FROM modules WHERE subject_id = ? ORDER BY id ASC`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := make([]study.Module, 0)
	for rows.Next() {
		var item study.Module
		if err := rows.Scan(&item.ID, &item.SubjectID, &item.Title, &item.Description); err != nil {
			return nil, err
		}
		modules = append(modules, item)
	}
	return modules, rows.Err()
}

func (s *SQLiteStore) GetModule(ctx context.Context, moduleID int64) (study.Module, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return study.Module{}, err
	}
	defer release()

	var item study.Module
	err = db.QueryRowContext(
		ctx,
		`SELECT id, subject_id, title, description FROM modules WHERE id = ?`,
		moduleID,
	).Scan(&item.ID, &item.SubjectID, &item.Title, &item.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return study.Module{}, study.ErrModuleNotFound
	}
	return item, err
}

func (s *SQLiteStore) ListSubmodules(ctx context.Context, moduleID int64) ([]study.Submodule, error) {
	db, release, err := s.lease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(
		ctx,
		`SELECT id, module_id, title, body FROM submodules WHERE module_id = ? ORDER BY id ASC`,
		moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submodules := make([]study.Submodule, 0)
	for rows.Next() {
		var item study.Submodule
		if err := rows.Scan(&item.ID, &item.ModuleID, &item.Title, &item.Body); err != nil {
			return nil, err
		}
		submodules = append(submodules, item)
	}
	return submodules, rows.Err()
}

func (s *SQLiteStore) DeleteModule(ctx context.Context, moduleID int64) error {
	db, release, err := s.lease(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := db.ExecContext(ctx, `DELETE FROM modules WHERE id = ?`, moduleID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return study.ErrModuleNotFound
	}
	return nil
}
