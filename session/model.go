package session

import (
	"strings"
	"time"

	"github.com/MrEthical07/portalAuth/permission"
)

// Session is the authenticated identity plus its optional bearer credential.
//
// A Session returned by the manager is a copy; mutating it does not change the
// live session.
type Session struct {
	User *User

	// Token is empty when TokenMissing is set.
	Token        string
	TokenMissing bool

	// TokenExpiresAt is the exp claim of a JWT bearer, zero otherwise.
	TokenExpiresAt time.Time

	// AuthenticatedAt is the login time; zero for restored sessions.
	AuthenticatedAt time.Time
}

// IsAuthenticated reports whether the session carries a well-formed user.
// A token alone never authenticates.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User.valid()
}

// Role returns the user's role, or the empty role for an unauthenticated session.
func (s *Session) Role() permission.Role {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.User.Role
}

// HasToken reports whether a real bearer credential is held.
func (s *Session) HasToken() bool {
	return s != nil && !s.TokenMissing && strings.TrimSpace(s.Token) != ""
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User = s.User.Clone()
	return &out
}
