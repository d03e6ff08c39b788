package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/notewave/notewave/internal/config"
	"github.com/notewave/notewave/internal/models"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")

	u := &models.User{ID: "user-123", Name: "Test User", Email: "test@example.com"}
	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	claims, err := VerifyAccessToken(cfg, tokenStr)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}
	if claims["sub"] != u.ID {
		t.Fatalf("unexpected sub claim: got=%v want=%v", claims["sub"], u.ID)
	}
	if claims["email"] != u.Email {
		t.Fatalf("unexpected email claim: got=%v want=%v", claims["email"], u.Email)
	}
}

func TestVerifyAccessToken_Expiry(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	u := &models.User{ID: "u2", Name: "X", Email: "x@x"}
	tokenStr, err := GenerateAccessToken(cfg, u, 1*time.Second)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	time.Sleep(2 * time.Second)
	if _, err := VerifyAccessToken(cfg, tokenStr); err == nil {
		t.Fatalf("expected verification to fail after expiry")
	}
}

func TestVerifyAccessToken_WrongSecretFails(t *testing.T) {
	cfg := testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx")
	u := &models.User{ID: "u3", Name: "Bob", Email: "bob@example.com"}
	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	other := testConfig("different-secret-xxxxxxxxxxxxxxxx")
	if _, err := VerifyAccessToken(other, tokenStr); err == nil {
		t.Fatalf("expected verification to fail with wrong secret")
	}
}

func TestVerifyAccessToken_Malformed(t *testing.T) {
	if _, err := VerifyAccessToken(testConfig("x"), "not.a.jwt"); err == nil {
		t.Fatalf("expected verification to fail for malformed token")
	}
}

// Rejected when alg=none (unsigned token)
func TestVerifyAccessToken_AlgNoneRejected(t *testing.T) {
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-none","exp":9999999999}`))
	tok := headerEnc + "." + payloadEnc + "."
	if _, err := VerifyAccessToken(testConfig("x"), tok); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

// Tampering with payload must fail signature verification
func TestVerifyAccessToken_TamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	u := &models.User{ID: "user-t", Name: "Tamper", Email: "t@example.com"}
	tokenStr, err := GenerateAccessToken(cfg, u, 5*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, _ := base64.RawURLEncoding.DecodeString(parts[1])
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))
	if _, err := VerifyAccessToken(cfg, strings.Join(parts, ".")); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}
