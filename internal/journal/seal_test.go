package journal

import (
	"errors"
	"testing"
)

func newTestSealer(t *testing.T, secret string) *Sealer {
	t.Helper()
	s, err := NewSealer(secret, "shieldly-test-salt")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func TestSealOpen(t *testing.T) {
	s := newTestSealer(t, "a long enough test secret")

	box, err := s.Seal("I felt scared at the park today.")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := s.Open(box)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "I felt scared at the park today." {
		t.Errorf("Open = %q", got)
	}

	again, err := s.Seal("I felt scared at the park today.")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if string(again) == string(box) {
		t.Errorf("two seals of the same text are identical; nonce not random")
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	box, err := newTestSealer(t, "a long enough test secret").Seal("private")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	other := newTestSealer(t, "a different test secret!!")
	if _, err := other.Open(box); !errors.Is(err, ErrSealed) {
		t.Errorf("Open with wrong key = %v, want ErrSealed", err)
	}
	if _, err := other.Open([]byte("short")); !errors.Is(err, ErrSealed) {
		t.Errorf("Open of truncated box = %v, want ErrSealed", err)
	}
}

func TestNewSealerValidation(t *testing.T) {
	if _, err := NewSealer("short", "salt"); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("NewSealer(short) = %v, want ErrWeakSecret", err)
	}
	if _, err := NewSealer("a long enough test secret", ""); err == nil {
		t.Errorf("NewSealer with empty salt succeeded")
	}
}
