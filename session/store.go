package session

import (
	"context"
	"errors"
	"fmt"
)

// DefaultPrefix namespaces the two session keys.
const DefaultPrefix = "portal_auth:"

// LoadReport describes what [Store.Load] found besides the session itself.
type LoadReport struct {
	// Healed is set when corrupt keys were removed.
	Healed bool
	// HealErr is the delete failure when healing did not complete.
	HealErr error
	// TokenKeyMissing is set when the user key was present without a token key.
	TokenKeyMissing bool
}

// Store persists the single current session as a user key and a token key.
//
// Store does no locking of its own beyond what the backend provides; the
// session manager is its only writer.
type Store struct {
	backend  Backend
	userKey  string
	tokenKey string
}

// NewStore creates a [Store] over backend. An empty prefix uses [DefaultPrefix].
func NewStore(backend Backend, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		backend:  backend,
		userKey:  prefix + "user",
		tokenKey: prefix + "token",
	}
}

// Keys returns the user and token key names.
func (s *Store) Keys() (userKey, tokenKey string) {
	return s.userKey, s.tokenKey
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Load reads the persisted session.
//
// It returns [ErrNotFound] when nothing is stored, [ErrCorrupt] when either key
// held unusable data (both keys are deleted before returning), and an error
// wrapping [ErrUnavailable] when the backend failed. A user without a token key
// loads as a session with TokenMissing set.
func (s *Store) Load(ctx context.Context) (*Session, LoadReport, error) {
	var report LoadReport

	values, err := s.backend.Get(ctx, s.userKey, s.tokenKey)
	if err != nil {
		return nil, report, wrapUnavailable(err)
	}

	rawUser, hasUser := values[s.userKey]
	rawToken, hasToken := values[s.tokenKey]

	if !hasUser && !hasToken {
		return nil, report, ErrNotFound
	}
	if !hasUser {
		return nil, s.heal(ctx, report), fmt.Errorf("%w: token without user", ErrCorrupt)
	}

	user, err := DecodeUser(rawUser)
	if err != nil {
		return nil, s.heal(ctx, report), err
	}

	sess := &Session{User: user}
	if !hasToken {
		report.TokenKeyMissing = true
		sess.TokenMissing = true
		return sess, report, nil
	}

	token, missing, err := DecodeToken(rawToken)
	if err != nil {
		return nil, s.heal(ctx, report), err
	}
	sess.Token = token
	sess.TokenMissing = missing
	return sess, report, nil
}

// Save writes the user and token keys together. A blank token is stored as
// [NoTokenMarker].
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrInvalidUser
	}
	rawUser, err := EncodeUser(sess.User)
	if err != nil {
		return err
	}
	token := sess.Token
	if sess.TokenMissing {
		token = ""
	}
	err = s.backend.Put(ctx, map[string]string{
		s.userKey:  string(rawUser),
		s.tokenKey: EncodeToken(token),
	})
	return wrapUnavailable(err)
}

// SaveUser replaces only the user key. On a [Replacer] backend the key keeps
// its remaining lifetime, so it still expires together with the token key.
func (s *Store) SaveUser(ctx context.Context, u *User) error {
	rawUser, err := EncodeUser(u)
	if err != nil {
		return err
	}
	entries := map[string]string{s.userKey: string(rawUser)}
	if r, ok := s.backend.(Replacer); ok {
		return wrapUnavailable(r.Replace(ctx, entries))
	}
	return wrapUnavailable(s.backend.Put(ctx, entries))
}

// Clear deletes both keys. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	return wrapUnavailable(s.backend.Delete(ctx, s.userKey, s.tokenKey))
}

func (s *Store) heal(ctx context.Context, report LoadReport) LoadReport {
	report.HealErr = s.Clear(ctx)
	report.Healed = report.HealErr == nil
	return report
}

func wrapUnavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
