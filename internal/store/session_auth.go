package store

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

// DefaultLoginTTL is how long a profile login lasts when no TTL is given.
const DefaultLoginTTL = 24 * time.Hour

// Only a digest of each login token is stored, so a leaked database cannot be
// replayed as cookies.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateAuthSession logs a profile in and returns the cookie token.
func (s *Store) CreateAuthSession(profileID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultLoginTTL
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate login token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := time.Now()
	if _, err := s.db.Exec(
		`INSERT INTO auth_sessions (token_hash, profile_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		tokenDigest(token), profileID, now, now.Add(ttl),
	); err != nil {
		return "", fmt.Errorf("insert login: %w", err)
	}
	return token, nil
}

// GetAuthSession looks up a live login. Unknown and expired tokens give nil.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	sess := model.AuthSession{ID: token}
	err := s.db.QueryRow(
		`SELECT profile_id, created_at, expires_at FROM auth_sessions
		 WHERE token_hash = ? AND expires_at > ?`,
		tokenDigest(token), time.Now(),
	).Scan(&sess.ProfileID, &sess.CreatedAt, &sess.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &sess, nil
}

// DeleteAuthSession logs a token out. Unknown tokens are not an error.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE token_hash = ?`, tokenDigest(token))
	return err
}

// CleanupExpiredSessions drops expired logins and reports how many went.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
