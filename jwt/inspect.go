package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when the bearer is not a decodable JWT.
var ErrNotJWT = errors.New("bearer is not a jwt")

// Claims are the registered claims read from a bearer.
type Claims struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Algorithm string
}

// Expired reports whether ExpiresAt is set and not after now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

var parser = jwt.NewParser()

// Inspect decodes token without verifying its signature.
func Inspect(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return Claims{}, ErrNotJWT
	}

	var rc jwt.RegisteredClaims
	parsed, _, err := parser.ParseUnverified(token, &rc)
	if err != nil {
		return Claims{}, errors.Join(ErrNotJWT, err)
	}

	out := Claims{
		Subject: rc.Subject,
		Issuer:  rc.Issuer,
	}
	if parsed.Method != nil {
		out.Algorithm = parsed.Method.Alg()
	}
	if rc.IssuedAt != nil {
		out.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		out.ExpiresAt = rc.ExpiresAt.Time
	}
	return out, nil
}
