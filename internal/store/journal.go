package store

import (
	"database/sql"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

const journalColumns = `id, profile_id, mood, content, sensitive, sealed, created_at, updated_at`

// CreateJournalEntry inserts an entry. Sensitive entries are expected to
// carry Sealed bytes and an empty Content.
func (s *Store) CreateJournalEntry(e model.JournalEntry) (int64, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO journal_entries (profile_id, mood, content, sensitive, sealed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ProfileID, string(e.Mood), e.Content, e.Sensitive, e.Sealed, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetJournalEntry returns one of a profile's entries, or nil if it does not exist.
func (s *Store) GetJournalEntry(profileID, id int64) (*model.JournalEntry, error) {
	row := s.db.QueryRow(
		`SELECT `+journalColumns+` FROM journal_entries WHERE id = ? AND profile_id = ?`,
		id, profileID,
	)
	e, err := scanJournal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListJournalEntries returns a profile's entries, newest first. An empty mood lists all.
func (s *Store) ListJournalEntries(profileID int64, mood model.Mood) ([]model.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE profile_id = ?`
	args := []any{profileID}
	if mood != "" {
		query += ` AND mood = ?`
		args = append(args, string(mood))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []model.JournalEntry{}
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateJournalEntry replaces an entry's mood and body.
func (s *Store) UpdateJournalEntry(e model.JournalEntry) error {
	res, err := s.db.Exec(
		`UPDATE journal_entries SET mood = ?, content = ?, sensitive = ?, sealed = ?, updated_at = ?
		 WHERE id = ? AND profile_id = ?`,
		string(e.Mood), e.Content, e.Sensitive, e.Sealed, time.Now(), e.ID, e.ProfileID,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteJournalEntry removes one of a profile's entries.
func (s *Store) DeleteJournalEntry(profileID, id int64) error {
	res, err := s.db.Exec(`DELETE FROM journal_entries WHERE id = ? AND profile_id = ?`, id, profileID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// MoodSummary counts a profile's entries per mood. Every known mood is present.
func (s *Store) MoodSummary(profileID int64) (map[model.Mood]int, error) {
	summary := make(map[model.Mood]int, len(model.Moods))
	for _, m := range model.Moods {
		summary[m] = 0
	}
	rows, err := s.db.Query(
		`SELECT mood, COUNT(*) FROM journal_entries
		 WHERE profile_id = ? AND mood != '' GROUP BY mood`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var mood string
		var n int
		if err := rows.Scan(&mood, &n); err != nil {
			return nil, err
		}
		summary[model.Mood(mood)] = n
	}
	return summary, rows.Err()
}

func scanJournal(sc scanner) (model.JournalEntry, error) {
	var e model.JournalEntry
	var mood string
	err := sc.Scan(&e.ID, &e.ProfileID, &mood, &e.Content, &e.Sensitive, &e.Sealed, &e.CreatedAt, &e.UpdatedAt)
	e.Mood = model.Mood(mood)
	return e, err
}
