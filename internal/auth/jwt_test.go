package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_NonPositiveTTL(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", 0)
	if err == nil {
		t.Fatal("NewTokenService() should reject a zero TTL")
	}
}

func TestNewTokenService_Valid(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", time.Second)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
}

// =========================================================================
// GENERATE TESTS
// =========================================================================

func TestGenerate_ReturnsNonEmptyToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Error("Generate() returned empty token")
	}

	// JWT tokens have 3 dot-separated parts: header.payload.signature
	if parts := strings.Count(token, "."); parts != 2 {
		t.Errorf("Generate() token doesn't look like a JWT (expected 2 dots, got %d)", parts)
	}
}

func TestGenerate_DifferentEmailsGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	token1, _ := ts.Generate("a@x.com")
	token2, _ := ts.Generate("b@x.com")

	if token1 == token2 {
		t.Error("Generate() returned identical tokens for different emails")
	}
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	email := "a@x.com"

	token, err := ts.Generate(email)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// Validate should return the exact same email we put in
	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != email {
		t.Errorf("Validate() email = %q, want %q", got, email)
	}
}

func TestValidate_ShortTTLStillValidWithinWindow(t *testing.T) {
	// A 1000ms token verified immediately must still carry its subject.
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", 1000*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := ts.Generate("a@x.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "a@x.com" {
		t.Errorf("Validate() email = %q, want %q", got, "a@x.com")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	// Generate a token that expired 1 second ago
	token, err := ts.GenerateWithDuration("a@x.com", -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() should return an error for an expired token")
	}
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate("a@x.com")

	// Flip a character in the signature (last segment after the 2nd dot)
	tampered := token[:len(token)-2] + "xx"

	_, err := ts.Validate(tampered)
	if err == nil {
		t.Fatal("Validate() should reject a tampered token")
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() error = %v, want ErrTokenInvalid", err)
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	_, err := ts.Validate("not-a-jwt-at-all")
	if err == nil {
		t.Fatal("Validate() should reject a malformed token")
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() error = %v, want ErrTokenInvalid", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1 := newTestTokenService(t)
	ts2, err := NewTokenService("a-completely-different-secret!!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts1.Generate("a@x.com")

	if _, err := ts2.Validate(token); err == nil {
		t.Fatal("Validate() should reject a token signed with a different secret")
	}
}

func TestValidate_EmptySubject(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() should reject a token with no subject")
	}
	if !errors.Is(err, ErrMalformedClaims) {
		t.Errorf("Validate() error = %v, want ErrMalformedClaims", err)
	}
}
