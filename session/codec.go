package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NoTokenMarker is persisted in the token key when a login produced no bearer.
const NoTokenMarker = "__portal_auth_no_token__"

// corruptLiterals are values left behind by clients that serialised absent
// values as strings.
var corruptLiterals = map[string]struct{}{
	"":          {},
	"undefined": {},
	"null":      {},
}

func isCorruptLiteral(raw string) bool {
	_, bad := corruptLiterals[strings.TrimSpace(raw)]
	return bad
}

// EncodeUser serialises u for the user key.
func EncodeUser(u *User) ([]byte, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(u)
}

// DecodeUser parses the user key. Every failure wraps [ErrCorrupt].
func DecodeUser(raw string) (*User, error) {
	if isCorruptLiteral(raw) {
		return nil, fmt.Errorf("%w: user value %q", ErrCorrupt, strings.TrimSpace(raw))
	}
	data := bytes.TrimSpace([]byte(raw))
	if data[0] != '{' {
		return nil, fmt.Errorf("%w: user value is not an object", ErrCorrupt)
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &u, nil
}

// EncodeToken returns the stored form of token.
func EncodeToken(token string) string {
	if strings.TrimSpace(token) == "" {
		return NoTokenMarker
	}
	return token
}

// DecodeToken parses the token key. missing is true for the placeholder.
func DecodeToken(raw string) (token string, missing bool, err error) {
	if isCorruptLiteral(raw) {
		return "", false, fmt.Errorf("%w: token value %q", ErrCorrupt, strings.TrimSpace(raw))
	}
	if raw == NoTokenMarker {
		return "", true, nil
	}
	return raw, false, nil
}
