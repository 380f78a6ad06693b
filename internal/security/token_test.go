package security

import (
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("super-secret", "user-123", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := ParseToken(tok, "super-secret")
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Fatalf("user id mismatch: got %q want %q", claims.UserID, "user-123")
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("secret", "u1", -time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := ParseToken(tok, "secret"); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("right-secret", "u2", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := ParseToken(tok, "wrong-secret"); err == nil {
		t.Fatalf("expected error for wrong signing key")
	}
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseToken("not.a.jwt", "k"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
