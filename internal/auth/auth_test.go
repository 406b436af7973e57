package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHashAndCheckPassword(test *testing.T) {
	test.Parallel()
	hash, err := HashPassword("s3cret-passphrase")
	if err != nil {
		test.Fatalf("hash: %v", err)
	}
	if !CheckPassword("s3cret-passphrase", hash) {
		test.Fatalf("expected hash to verify")
	}
	if CheckPassword("wrong", hash) {
		test.Fatalf("expected wrong password to fail")
	}
}

func TestIssueAndVerifyToken(test *testing.T) {
	test.Parallel()
	issuer, err := NewTokenIssuer("unit-test-secret", time.Hour)
	if err != nil {
		test.Fatalf("issuer: %v", err)
	}
	signed, err := issuer.Issue("user-1", "builder", "Skyline Builders")
	if err != nil {
		test.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Verify(signed)
	if err != nil {
		test.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "builder" || claims.Name != "Skyline Builders" {
		test.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(test *testing.T) {
	test.Parallel()
	issuer, err := NewTokenIssuer("unit-test-secret", time.Minute)
	if err != nil {
		test.Fatalf("issuer: %v", err)
	}
	issued := time.Now()
	issuer.nowFn = func() time.Time { return issued }
	signed, err := issuer.Issue("user-1", "builder", "Skyline Builders")
	if err != nil {
		test.Fatalf("issue: %v", err)
	}
	issuer.nowFn = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := issuer.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		test.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(test *testing.T) {
	test.Parallel()
	issuer, _ := NewTokenIssuer("secret-one", time.Hour)
	other, _ := NewTokenIssuer("secret-two", time.Hour)
	signed, err := issuer.Issue("user-1", "admin", "Bank Admin")
	if err != nil {
		test.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		test.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}

func TestNewTokenIssuerRejectsEmptySecret(test *testing.T) {
	test.Parallel()
	if _, err := NewTokenIssuer("   ", time.Hour); !errors.Is(err, ErrEmptySigningSecret) {
		test.Fatalf("expected ErrEmptySigningSecret, got %v", err)
	}
}
