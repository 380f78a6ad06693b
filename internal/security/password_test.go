package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if string(hash) == "secret1" {
		t.Fatalf("hash equals plaintext")
	}
	if !VerifyPassword("secret1", hash) {
		t.Fatalf("correct password rejected")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("wrong password accepted")
	}
}

func TestVerifyPassword_GarbageHash(t *testing.T) {
	t.Parallel()

	if VerifyPassword("anything", []byte("not a bcrypt hash")) {
		t.Fatalf("garbage hash accepted")
	}
}

func TestHashPassword_OutOfRangeCostFallsBack(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret1", 99)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	cost, err := bcrypt.Cost(hash)
	if err != nil {
		t.Fatalf("Cost error: %v", err)
	}
	if cost != DefaultHashCost {
		t.Fatalf("expected default cost %d, got %d", DefaultHashCost, cost)
	}
}

func TestHashPassword_SaltedHashesDiffer(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	h2, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if string(h1) == string(h2) {
		t.Fatalf("two hashes of the same password are identical; salt missing")
	}
}
