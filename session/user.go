package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrEthical07/portalAuth/permission"
)

// Canonical JSON keys of a user record.
const (
	keyID          = "id"
	keyDisplayName = "displayName"
	keyEmail       = "email"
	keyRole        = "role"
)

var displayNameAliases = []string{"name", "display_name", "fullName"}

// User is the identity record returned by the identity provider.
//
// Keys other than the canonical ones are kept in Extra and written back
// unchanged, so profile fields the portals add survive a round trip.
type User struct {
	ID          string
	DisplayName string
	Email       string
	Role        permission.Role

	Extra map[string]json.RawMessage
}

// UserPatch is a shallow update: each top-level key replaces the same key of
// the stored record.
type UserPatch map[string]any

func (u *User) valid() bool {
	return u != nil && strings.TrimSpace(u.ID) != ""
}

// Validate returns [ErrInvalidUser] when the record has no id.
func (u *User) Validate() error {
	if !u.valid() {
		return ErrInvalidUser
	}
	return nil
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &out
}

// Merge applies patch over the record and returns the result. The receiver is
// not modified. The merged record must still carry an id.
func (u *User) Merge(patch UserPatch) (*User, error) {
	fields, err := u.fields()
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidUser, k, err)
		}
		if isDisplayNameAlias(k) {
			// An explicit displayName in the same patch wins.
			if _, ok := patch[keyDisplayName]; ok {
				continue
			}
			k = keyDisplayName
		}
		fields[k] = raw
	}

	merged, err := userFromFields(fields)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func isDisplayNameAlias(key string) bool {
	for _, alias := range displayNameAliases {
		if key == alias {
			return true
		}
	}
	return false
}

func (u *User) fields() (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, len(u.Extra)+4)
	for k, v := range u.Extra {
		fields[k] = v
	}
	for k, v := range map[string]string{
		keyID:          u.ID,
		keyDisplayName: u.DisplayName,
		keyEmail:       u.Email,
		keyRole:        string(u.Role),
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return fields, nil
}

// MarshalJSON writes the canonical keys followed by Extra.
func (u User) MarshalJSON() ([]byte, error) {
	fields, err := u.fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON accepts the canonical shape plus the aliases some identity
// providers use: numeric ids and name/display_name for the display name.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("%w: null record", ErrInvalidUser)
	}
	parsed, err := userFromFields(fields)
	if err != nil {
		return err
	}
	*u = *parsed
	return nil
}

func userFromFields(fields map[string]json.RawMessage) (*User, error) {
	u := &User{}
	consume := func(key string) (json.RawMessage, bool) {
		raw, ok := fields[key]
		if ok {
			delete(fields, key)
		}
		return raw, ok
	}

	if raw, ok := consume(keyID); ok {
		id, err := decodeID(raw)
		if err != nil {
			return nil, err
		}
		u.ID = id
	}

	if raw, ok := consume(keyDisplayName); ok {
		u.DisplayName = decodeLooseString(raw)
	}
	for _, alias := range displayNameAliases {
		raw, ok := consume(alias)
		if ok && u.DisplayName == "" {
			u.DisplayName = decodeLooseString(raw)
		}
	}

	if raw, ok := consume(keyEmail); ok {
		u.Email = strings.TrimSpace(decodeLooseString(raw))
	}

	if raw, ok := consume(keyRole); ok {
		u.Role = normalizeRole(decodeLooseString(raw))
	}

	if len(fields) > 0 {
		u.Extra = fields
	}
	return u, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: id: %v", ErrInvalidUser, err)
		}
		return strings.TrimSpace(s), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("%w: id must be a string or number", ErrInvalidUser)
		}
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return n.String(), nil
	}
}

func decodeLooseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// normalizeRole maps provider spellings onto the enumeration. Unknown strings
// are kept as-is; they fail closed wherever a role is checked.
func normalizeRole(s string) permission.Role {
	if r, ok := permission.ParseRole(s); ok {
		return r
	}
	return permission.Role(strings.TrimSpace(s))
}
