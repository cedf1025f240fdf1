package stores

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time      { return c.t }
func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*PasswordResetStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	return NewPasswordResetStore(clock.now), clock
}

func TestBeginAndActive(t *testing.T) {
	s, clock := newTestStore()
	rec := s.Begin(" A@B.com ", 3, 10*time.Minute)
	if rec.Email != "a@b.com" || rec.State != ResetRequested || rec.AttemptsRemaining != 3 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.RequestedAt.Equal(clock.t) || !rec.ExpiresAt.Equal(clock.t.Add(10*time.Minute)) {
		t.Fatalf("unexpected timestamps %+v", rec)
	}

	got, err := s.Active("a@b.COM")
	if err != nil || got.ID != rec.ID {
		t.Fatalf("expected active record, got %+v %v", got, err)
	}
	if _, err := s.Active("other@b.com"); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected ErrResetNotFound for other email, got %v", err)
	}
}

func TestActiveExpires(t *testing.T) {
	s, clock := newTestStore()
	s.Begin("a@b.com", 3, time.Minute)
	clock.add(time.Minute)
	if _, err := s.Active("a@b.com"); !errors.Is(err, ErrResetExpired) {
		t.Fatalf("expected ErrResetExpired, got %v", err)
	}
	if _, ok := s.Current(); ok {
		t.Fatal("expired record must be discarded")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	s, clock := newTestStore()
	s.Begin("a@b.com", 3, 0)
	clock.add(365 * 24 * time.Hour)
	if _, err := s.Active("a@b.com"); err != nil {
		t.Fatalf("expected no expiry, got %v", err)
	}
}

func TestRecordFailureExhaustsAndStays(t *testing.T) {
	s, _ := newTestStore()
	rec := s.Begin("a@b.com", 3, time.Hour)

	for want := 2; want >= 1; want-- {
		got, err := s.RecordFailure(rec.ID)
		if err != nil || got != want {
			t.Fatalf("expected %d remaining, got %d %v", want, got, err)
		}
	}
	if _, err := s.RecordFailure(rec.ID); !errors.Is(err, ErrResetAttemptsExceeded) {
		t.Fatalf("expected ErrResetAttemptsExceeded, got %v", err)
	}

	cur, err := s.Active("a@b.com")
	if err != nil || !cur.Exhausted() {
		t.Fatalf("exhausted record must remain, got %+v %v", cur, err)
	}
	if err := s.MarkVerified(rec.ID, "123"); !errors.Is(err, ErrResetAttemptsExceeded) {
		t.Fatalf("exhausted record must not verify, got %v", err)
	}
}

func TestMutationsRejectReplacedRequest(t *testing.T) {
	s, _ := newTestStore()
	old := s.Begin("a@b.com", 3, time.Hour)
	fresh := s.Begin("a@b.com", 3, time.Hour)

	if _, err := s.RecordFailure(old.ID); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected ErrResetNotFound for replaced id, got %v", err)
	}
	if err := s.MarkVerified(old.ID, "1"); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected ErrResetNotFound for replaced id, got %v", err)
	}
	if s.Delete(old.ID) {
		t.Fatal("deleting replaced request must be a no-op")
	}
	if cur, _ := s.Current(); cur.ID != fresh.ID || cur.AttemptsRemaining != 3 {
		t.Fatalf("fresh request must be untouched, got %+v", cur)
	}
	if s.Delete(uuid.New()) {
		t.Fatal("unknown id must not delete")
	}
}

func TestMatchVerified(t *testing.T) {
	s, _ := newTestStore()
	rec := s.Begin("a@b.com", 3, time.Hour)

	if _, err := s.MatchVerified("a@b.com", "123456"); !errors.Is(err, ErrResetNotVerified) {
		t.Fatalf("expected ErrResetNotVerified before verification, got %v", err)
	}
	if err := s.MarkVerified(rec.ID, "123456"); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	if _, err := s.MatchVerified("a@b.com", "654321"); !errors.Is(err, ErrResetSecretMismatch) {
		t.Fatalf("expected ErrResetSecretMismatch, got %v", err)
	}
	if _, err := s.MatchVerified("x@b.com", "123456"); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected ErrResetNotFound for other email, got %v", err)
	}
	got, err := s.MatchVerified("A@B.com", "123456")
	if err != nil || got.State != ResetVerified {
		t.Fatalf("expected verified match, got %+v %v", got, err)
	}
	if !s.Delete(rec.ID) {
		t.Fatal("expected delete of current request")
	}
	if _, err := s.MatchVerified("a@b.com", "123456"); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("deleted request must not be reusable, got %v", err)
	}
}
