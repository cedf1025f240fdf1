package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MrEthical07/portalAuth/permission"
)

func TestUserUnmarshalAliases(t *testing.T) {
	var u User
	raw := `{"id": 42, "display_name": "Ada", "email": " ada@example.com ", "role": "team_lead", "department": "R&D"}`
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.ID != "42" || u.DisplayName != "Ada" || u.Email != "ada@example.com" || u.Role != permission.RoleTeamLead {
		t.Fatalf("unexpected user %+v", u)
	}
	if string(u.Extra["department"]) != `"R&D"` {
		t.Fatalf("expected extra field preserved, got %v", u.Extra)
	}
	if _, ok := u.Extra["display_name"]; ok {
		t.Fatal("aliases must not leak into Extra")
	}
}

func TestUserUnknownRoleKept(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":"1","role":"Auditor"}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Role != "Auditor" || u.Role.Valid() {
		t.Fatalf("expected unknown role kept verbatim, got %q", u.Role)
	}
}

func TestUserMarshalRoundTripKeepsExtra(t *testing.T) {
	u := &User{ID: "1", DisplayName: "A", Role: permission.RoleHR, Extra: map[string]json.RawMessage{"phone": json.RawMessage(`"555"`)}}
	raw, err := EncodeUser(u)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeUser(string(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.ID != "1" || back.Role != permission.RoleHR || string(back.Extra["phone"]) != `"555"` {
		t.Fatalf("unexpected round trip %+v", back)
	}
}

func TestUserMergeShallow(t *testing.T) {
	u := &User{
		ID:    "1",
		Email: "old@example.com",
		Role:  permission.RoleEmployee,
		Extra: map[string]json.RawMessage{"address": json.RawMessage(`{"city":"Oslo","zip":"0150"}`)},
	}

	merged, err := u.Merge(UserPatch{
		"email":   "new@example.com",
		"address": map[string]string{"city": "Bergen"},
		"phone":   "555",
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Email != "new@example.com" || merged.ID != "1" || merged.Role != permission.RoleEmployee {
		t.Fatalf("unexpected merged canonical fields %+v", merged)
	}
	if string(merged.Extra["address"]) != `{"city":"Bergen"}` {
		t.Fatalf("top-level key must be replaced wholesale, got %s", merged.Extra["address"])
	}
	if string(merged.Extra["phone"]) != `"555"` {
		t.Fatalf("expected new key added, got %s", merged.Extra["phone"])
	}
	if u.Email != "old@example.com" {
		t.Fatal("Merge must not mutate the receiver")
	}
}

func TestUserMergeDisplayNameAliases(t *testing.T) {
	u := &User{ID: "1", DisplayName: "Before"}

	for _, key := range []string{"name", "display_name", "fullName"} {
		merged, err := u.Merge(UserPatch{key: "After"})
		if err != nil {
			t.Fatalf("merge %s: %v", key, err)
		}
		if merged.DisplayName != "After" {
			t.Fatalf("%s: expected display name replaced, got %q", key, merged.DisplayName)
		}
		if len(merged.Extra) != 0 {
			t.Fatalf("%s: expected no extra keys, got %v", key, merged.Extra)
		}
	}

	merged, err := u.Merge(UserPatch{"name": "Alias", "displayName": "Canonical"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.DisplayName != "Canonical" {
		t.Fatalf("expected canonical key to win, got %q", merged.DisplayName)
	}
}

func TestUserMergeRejectsBlankID(t *testing.T) {
	u := &User{ID: "1"}
	if _, err := u.Merge(UserPatch{"id": ""}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
	if _, err := u.Merge(UserPatch{"id": nil}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for null id, got %v", err)
	}
	if _, err := u.Merge(UserPatch{"bad": make(chan int)}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for unencodable value, got %v", err)
	}
}

func TestSessionNilSafety(t *testing.T) {
	var s *Session
	if s.IsAuthenticated() || s.Role() != "" || s.HasToken() || s.Clone() != nil {
		t.Fatal("nil session must be unauthenticated")
	}
	stale := &Session{Token: "abc"}
	if stale.IsAuthenticated() {
		t.Fatal("token without user must not authenticate")
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := testSession()
	s.User.Extra = map[string]json.RawMessage{"k": json.RawMessage(`1`)}
	c := s.Clone()
	c.User.DisplayName = "changed"
	c.User.Extra["k"][0] = '2'
	if s.User.DisplayName == "changed" || string(s.User.Extra["k"]) != "1" {
		t.Fatal("Clone must not share user state")
	}
}

func TestDecodeTokenMarker(t *testing.T) {
	if tok, missing, err := DecodeToken(NoTokenMarker); err != nil || !missing || tok != "" {
		t.Fatalf("unexpected marker decode %q %v %v", tok, missing, err)
	}
	if EncodeToken("  ") != NoTokenMarker {
		t.Fatal("blank token must encode to marker")
	}
}
