// Package otp holds password-reset codes in process memory.
//
// Codes are 6-digit numbers, stored only as bcrypt hashes, keyed by
// normalized email. A restart drops every pending code; users simply request
// a new one. Expired entries are removed by Sweep, which the task runner
// calls on a fixed interval.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the number of digits in a code.
	CodeLength = 6
	// DefaultExpiry is how long an issued code stays valid.
	DefaultExpiry = 10 * time.Minute
	// MaxAttempts is the number of wrong guesses allowed per code.
	MaxAttempts = 5
	// BcryptCost for hashing codes.
	BcryptCost = 10
)

var (
	// ErrNotFound is returned when no live code exists for the email.
	ErrNotFound = errors.New("code not found or expired")
	// ErrInvalidCode is returned when the code does not match.
	ErrInvalidCode = errors.New("invalid code")
	// ErrTooManyAttempts is returned once MaxAttempts wrong guesses were made.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrNotVerified is returned by Consume when the code was never verified.
	ErrNotVerified = errors.New("code not verified")
)

type entry struct {
	hash      []byte
	expiresAt time.Time
	attempts  int
	verified  bool
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	expiry  time.Duration
	now     func() time.Time
}

// New returns an empty store. expiry <= 0 uses DefaultExpiry.
func New(expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		entries: make(map[string]*entry),
		expiry:  expiry,
		now:     time.Now,
	}
}

// Expiry returns the lifetime of an issued code.
func (s *Store) Expiry() time.Duration { return s.expiry }

// Issue creates a new code for email, replacing any previous one, and
// returns the plain code to send to the user.
func (s *Store) Issue(email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	s.mu.Lock()
	s.entries[email] = &entry{hash: hash, expiresAt: s.now().Add(s.expiry)}
	s.mu.Unlock()
	return code, nil
}

// Verify checks code for email. A correct code marks the entry verified so
// that a following Consume succeeds; the entry keeps its original expiry.
// Only wrong guesses count against MaxAttempts, so a verified code can be
// checked again when the reset is submitted.
func (s *Store) Verify(email, code string) error {
	s.mu.Lock()
	e, ok := s.live(email)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if e.attempts >= MaxAttempts {
		s.mu.Unlock()
		return ErrTooManyAttempts
	}
	e.attempts++
	hash := e.hash
	s.mu.Unlock()

	// bcrypt is slow; compare outside the lock. The attempt is reserved
	// above so concurrent guesses cannot exceed MaxAttempts.
	mismatch := bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if mismatch {
		return ErrInvalidCode
	}
	e.attempts--
	// The entry may have been replaced by a newer Issue meanwhile.
	if cur, ok := s.live(email); ok && cur == e {
		e.verified = true
		return nil
	}
	return ErrNotFound
}

// Consume removes a verified entry. It fails with ErrNotVerified when the
// code was never verified, leaving the entry in place.
func (s *Store) Consume(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(email)
	if !ok {
		return ErrNotFound
	}
	if !e.verified {
		return ErrNotVerified
	}
	delete(s.entries, email)
	return nil
}

// Sweep deletes expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// live returns the unexpired entry for email. Callers hold s.mu.
func (s *Store) live(email string) (*entry, bool) {
	e, ok := s.entries[email]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false
	}
	return e, true
}

// generateCode returns a uniformly random 6-digit code (100000-999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
