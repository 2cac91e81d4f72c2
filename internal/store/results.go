package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pavelanni/shieldly/internal/model"
)

// SaveResult persists a completed quiz result with its per-question answers.
func (s *Store) SaveResult(r model.StoredResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO quiz_results
		 (profile_id, session_key, language, category, correct, total, percent, tier, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ProfileID, r.SessionKey, r.Language, r.Category,
		r.Correct, r.Total, r.Percent, string(r.Tier), r.CompletedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, a := range r.Answers {
		var selected sql.NullInt64
		if a.Selected != nil {
			selected = sql.NullInt64{Int64: int64(*a.Selected), Valid: true}
		}
		_, err := tx.Exec(
			`INSERT INTO quiz_answers (result_id, position, question_id, selected, correct, timed_out)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, a.Position, a.QuestionID, selected, a.Correct, a.TimedOut,
		)
		if err != nil {
			return 0, fmt.Errorf("insert answer %d: %w", a.Position, err)
		}
	}
	for _, b := range r.Badges {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO quiz_result_badges (result_id, name) VALUES (?, ?)`, id, string(b),
		); err != nil {
			return 0, fmt.Errorf("insert badge %s: %w", b, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.Info("saved quiz result", "id", id, "session", r.SessionKey, "correct", r.Correct, "total", r.Total)
	return id, nil
}

// ListResults returns stored results, newest first. A nil profileID lists all.
func (s *Store) ListResults(profileID *int64) ([]model.StoredResult, error) {
	query := `SELECT id, profile_id, session_key, language, category, correct, total, percent, tier, completed_at
		 FROM quiz_results`
	var args []any
	if profileID != nil {
		query += ` WHERE profile_id = ?`
		args = append(args, *profileID)
	}
	query += ` ORDER BY completed_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var results []model.StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		if err := s.loadDetails(&results[i]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// GetResult returns a stored result by ID, or nil if it does not exist.
func (s *Store) GetResult(id int64) (*model.StoredResult, error) {
	row := s.db.QueryRow(
		`SELECT id, profile_id, session_key, language, category, correct, total, percent, tier, completed_at
		 FROM quiz_results WHERE id = ?`, id)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(sc scanner) (model.StoredResult, error) {
	var r model.StoredResult
	var profileID sql.NullInt64
	var tier string
	err := sc.Scan(&r.ID, &profileID, &r.SessionKey, &r.Language, &r.Category,
		&r.Correct, &r.Total, &r.Percent, &tier, &r.CompletedAt)
	if err != nil {
		return r, err
	}
	if profileID.Valid {
		r.ProfileID = &profileID.Int64
	}
	r.Tier = model.Tier(tier)
	return r, nil
}

// loadDetails fills in the answers and the badges the run unlocked.
func (s *Store) loadDetails(r *model.StoredResult) error {
	var err error
	if r.Answers, err = s.listAnswers(r.ID); err != nil {
		return fmt.Errorf("answers for result %d: %w", r.ID, err)
	}
	if r.Badges, err = s.listResultBadges(r.ID); err != nil {
		return fmt.Errorf("badges for result %d: %w", r.ID, err)
	}
	return nil
}

func (s *Store) listResultBadges(resultID int64) ([]model.Badge, error) {
	rows, err := s.db.Query(
		`SELECT name FROM quiz_result_badges WHERE result_id = ? ORDER BY rowid`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	badges := []model.Badge{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		badges = append(badges, model.Badge(name))
	}
	return badges, rows.Err()
}

func (s *Store) listAnswers(resultID int64) ([]model.AnswerRecord, error) {
	rows, err := s.db.Query(
		`SELECT position, question_id, selected, correct, timed_out
		 FROM quiz_answers WHERE result_id = ? ORDER BY position`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := []model.AnswerRecord{}
	for rows.Next() {
		var a model.AnswerRecord
		var selected sql.NullInt64
		if err := rows.Scan(&a.Position, &a.QuestionID, &selected, &a.Correct, &a.TimedOut); err != nil {
			return nil, err
		}
		if selected.Valid {
			v := int(selected.Int64)
			a.Selected = &v
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
