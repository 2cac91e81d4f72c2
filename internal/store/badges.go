package store

import (
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

// UnlockBadges records badges for a profile. Badges already held keep their
// original unlock time. Returns how many badges were newly recorded.
func (s *Store) UnlockBadges(profileID int64, badges []model.Badge) (int, error) {
	if len(badges) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	added := 0
	for _, b := range badges {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO badges (profile_id, name, unlocked_at) VALUES (?, ?, ?)`,
			profileID, string(b), now,
		)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}
	return added, tx.Commit()
}

// ListBadges returns a profile's badges in unlock order.
func (s *Store) ListBadges(profileID int64) ([]model.UnlockedBadge, error) {
	rows, err := s.db.Query(
		`SELECT name, unlocked_at FROM badges WHERE profile_id = ? ORDER BY unlocked_at, rowid`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	badges := []model.UnlockedBadge{}
	for rows.Next() {
		var b model.UnlockedBadge
		var name string
		if err := rows.Scan(&name, &b.UnlockedAt); err != nil {
			return nil, err
		}
		b.Name = model.Badge(name)
		badges = append(badges, b)
	}
	return badges, rows.Err()
}
