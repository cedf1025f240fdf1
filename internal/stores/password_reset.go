package stores

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrResetNotFound         = errors.New("reset request not found")
	ErrResetExpired          = errors.New("reset request expired")
	ErrResetAttemptsExceeded = errors.New("reset attempts exceeded")
	ErrResetNotVerified      = errors.New("reset request not verified")
	ErrResetSecretMismatch   = errors.New("reset otp mismatch")
)

// ResetState is the position of a request in the reset protocol.
type ResetState uint8

const (
	ResetRequested ResetState = iota + 1
	ResetVerified
)

func (s ResetState) String() string {
	switch s {
	case ResetRequested:
		return "requested"
	case ResetVerified:
		return "verified"
	default:
		return "none"
	}
}

// ResetRecord is a snapshot of the current request.
type ResetRecord struct {
	ID                uuid.UUID
	Email             string
	RequestedAt       time.Time
	ExpiresAt         time.Time
	AttemptsRemaining int
	State             ResetState
	otpHash           [32]byte
}

// Exhausted reports whether no verification attempts remain.
func (r ResetRecord) Exhausted() bool {
	return r.AttemptsRemaining <= 0
}

// PasswordResetStore tracks at most one reset request.
type PasswordResetStore struct {
	mu      sync.Mutex
	current *ResetRecord
	now     func() time.Time
}

// NewPasswordResetStore returns an empty store. A nil now uses time.Now.
func NewPasswordResetStore(now func() time.Time) *PasswordResetStore {
	if now == nil {
		now = time.Now
	}
	return &PasswordResetStore{now: now}
}

// NormalizeEmail is the key used to match requests.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Begin replaces any current request with a new one in the requested state.
func (s *PasswordResetStore) Begin(email string, attempts int, ttl time.Duration) ResetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &ResetRecord{
		ID:                uuid.New(),
		Email:             NormalizeEmail(email),
		RequestedAt:       now,
		AttemptsRemaining: attempts,
		State:             ResetRequested,
	}
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}
	s.current = rec
	return *rec
}

// Active returns the current request for email. An expired request is
// discarded and reported as [ErrResetExpired].
func (s *PasswordResetStore) Active(email string) (ResetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.current
	if rec == nil || rec.Email != NormalizeEmail(email) {
		return ResetRecord{}, ErrResetNotFound
	}
	if !rec.ExpiresAt.IsZero() && !s.now().Before(rec.ExpiresAt) {
		s.current = nil
		return ResetRecord{}, ErrResetExpired
	}
	return *rec, nil
}

// RecordFailure consumes one attempt of request id and returns the remainder.
// The exhausted request stays in place so later attempts fail locally.
func (s *PasswordResetStore) RecordFailure(id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookupLocked(id)
	if err != nil {
		return 0, err
	}
	if rec.AttemptsRemaining > 0 {
		rec.AttemptsRemaining--
	}
	if rec.AttemptsRemaining <= 0 {
		return 0, ErrResetAttemptsExceeded
	}
	return rec.AttemptsRemaining, nil
}

// MarkVerified moves request id to the verified state and records otp.
func (s *PasswordResetStore) MarkVerified(id uuid.UUID, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	if rec.Exhausted() {
		return ErrResetAttemptsExceeded
	}
	rec.State = ResetVerified
	rec.otpHash = sha256.Sum256([]byte(otp))
	return nil
}

// MatchVerified returns the current request when it is verified for email
// with the same otp.
func (s *PasswordResetStore) MatchVerified(email, otp string) (ResetRecord, error) {
	rec, err := s.Active(email)
	if err != nil {
		return ResetRecord{}, err
	}
	if rec.State != ResetVerified {
		return ResetRecord{}, ErrResetNotVerified
	}
	provided := sha256.Sum256([]byte(otp))
	if subtle.ConstantTimeCompare(provided[:], rec.otpHash[:]) != 1 {
		return ResetRecord{}, ErrResetSecretMismatch
	}
	return rec, nil
}

// Delete discards request id. Deleting a replaced request is a no-op.
func (s *PasswordResetStore) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id {
		return false
	}
	s.current = nil
	return true
}

// Clear discards whatever request is current.
func (s *PasswordResetStore) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns a snapshot of the current request without expiry checks.
func (s *PasswordResetStore) Current() (ResetRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ResetRecord{}, false
	}
	return *s.current, true
}

func (s *PasswordResetStore) lookupLocked(id uuid.UUID) (*ResetRecord, error) {
	if s.current == nil || s.current.ID != id {
		return nil, ErrResetNotFound
	}
	return s.current, nil
}
