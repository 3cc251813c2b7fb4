package auth_test

import (
	"testing"
	"time"

	"github.com/dropline/vendor-console/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"

	token, err := auth.GenerateToken(secret, "V1", "ops@acme.test", "upstream-token", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.VendorID != "V1" {
		t.Errorf("vendor ID: got %v, want V1", claims.VendorID)
	}
	if claims.Email != "ops@acme.test" {
		t.Errorf("email: got %v", claims.Email)
	}
	if claims.UpstreamToken != "upstream-token" {
		t.Errorf("upstream token: got %v", claims.UpstreamToken)
	}
	if claims.SessionID() == "" {
		t.Error("session ID should be set")
	}
}

func TestSessionIDUniquePerLogin(t *testing.T) {
	a, _ := auth.GenerateToken("s", "V1", "e", "u", time.Hour)
	b, _ := auth.GenerateToken("s", "V1", "e", "u", time.Hour)

	ca, _ := auth.ValidateToken("s", a)
	cb, _ := auth.ValidateToken("s", b)
	if ca == nil || cb == nil {
		t.Fatal("tokens should validate")
	}
	if ca.SessionID() == cb.SessionID() {
		t.Error("two logins should get distinct session IDs")
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", "V1", "e", "u", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", "V1", "e", "u", -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
