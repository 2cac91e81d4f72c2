package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

// CreateProfile inserts a new profile.
func (s *Store) CreateProfile(p model.Profile) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO profiles (name, pin_hash, created_at) VALUES (?, ?, ?)`,
		p.Name, p.PINHash, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create profile", "name", p.Name, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created profile", "id", id, "name", p.Name, "pin", p.HasPIN())
	return id, nil
}

// GetProfile returns a profile by ID, or nil if it does not exist.
func (s *Store) GetProfile(id int64) (*model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRow(
		`SELECT id, name, pin_hash, created_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.PINHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns all profiles.
func (s *Store) ListProfiles() ([]model.Profile, error) {
	rows, err := s.db.Query(`SELECT id, name, pin_hash, created_at FROM profiles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.PINHash, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SetProfilePIN replaces a profile's PIN hash. An empty hash removes the PIN.
func (s *Store) SetProfilePIN(id int64, pinHash string) error {
	res, err := s.db.Exec(`UPDATE profiles SET pin_hash = ? WHERE id = ?`, pinHash, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ProfileCount returns the total number of profiles.
func (s *Store) ProfileCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&count)
	return count, err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
