// Package journal seals and opens sensitive journal entries.
package journal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize         = 32
	nonceSize       = 24
	kdfIterations   = 100_000
	minSecretLength = 16
)

var (
	// ErrSealed is returned when a sealed entry cannot be opened with the
	// current key.
	ErrSealed = errors.New("sealed content cannot be opened")
	// ErrWeakSecret is returned for secrets too short to derive a key from.
	ErrWeakSecret = errors.New("journal secret too short")
)

// Sealer encrypts entry content with a key derived from a secret.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the sealing key from secret and salt.
func NewSealer(secret, salt string) (*Sealer, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, minSecretLength)
	}
	if salt == "" {
		return nil, errors.New("journal salt must not be empty")
	}
	s := &Sealer{}
	copy(s.key[:], pbkdf2.Key([]byte(secret), []byte(salt), kdfIterations, keySize, sha256.New))
	return s, nil
}

// Seal encrypts plaintext. The random nonce is prepended to the box.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open decrypts a box produced by Seal.
func (s *Sealer) Open(box []byte) (string, error) {
	if len(box) < nonceSize+secretbox.Overhead {
		return "", ErrSealed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	out, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrSealed
	}
	return string(out), nil
}
