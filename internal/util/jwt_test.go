package util

import (
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	const secret = "test-secret-for-unit-tests-only-0000"

	token, err := GenerateJWT(42, "Jamie", "candidate", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Name != "Jamie" {
		t.Errorf("Name = %q", claims.Name)
	}
	if claims.Role != "candidate" {
		t.Errorf("Role = %q", claims.Role)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT(1, "a", "b", "secret-one-secret-one-secret-one", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, "secret-two-secret-two-secret-two"); err == nil {
		t.Fatal("expected parse error with wrong secret")
	}
}

func TestParseJWTRejectsExpired(t *testing.T) {
	const secret = "test-secret-for-unit-tests-only-0000"
	token, err := GenerateJWT(1, "a", "b", secret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, secret); err == nil {
		t.Fatal("expected parse error for expired token")
	}
}
