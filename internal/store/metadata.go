package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/shieldly/internal/model"
)

// SetValue upserts a key-value pair in the kv table.
func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetValue returns the value for a key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func avatarKey(profileID int64) string   { return fmt.Sprintf("avatar:%d", profileID) }
func languageKey(profileID int64) string { return fmt.Sprintf("lang:%d", profileID) }

// SetAvatar stores a profile's avatar choices.
func (s *Store) SetAvatar(profileID int64, a model.Avatar) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.SetValue(avatarKey(profileID), string(data))
}

// GetAvatar returns a profile's avatar, or the default avatar if none was saved.
func (s *Store) GetAvatar(profileID int64) (model.Avatar, error) {
	raw, err := s.GetValue(avatarKey(profileID))
	if err != nil || raw == "" {
		return model.DefaultAvatar, err
	}
	var a model.Avatar
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return model.DefaultAvatar, fmt.Errorf("decode avatar: %w", err)
	}
	return a, nil
}

// SetPreferredLanguage remembers the UI language a profile last chose.
func (s *Store) SetPreferredLanguage(profileID int64, lang string) error {
	return s.SetValue(languageKey(profileID), lang)
}

// GetPreferredLanguage returns the remembered UI language, or "".
func (s *Store) GetPreferredLanguage(profileID int64) (string, error) {
	return s.GetValue(languageKey(profileID))
}
