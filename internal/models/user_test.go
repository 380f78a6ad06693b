package models

import "testing"

func TestParseRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{"rep", RoleRep, true},
		{"", RoleRep, true},
		{"superadmin", "", false},
		{"Admin", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSanitizedDropsHash(t *testing.T) {
	t.Parallel()

	user := User{ID: "u1", PasswordHash: []byte("hash")}
	if user.Sanitized().PasswordHash != nil {
		t.Fatalf("hash survived sanitization")
	}
	if user.PasswordHash == nil {
		t.Fatalf("sanitization mutated the receiver")
	}
}
