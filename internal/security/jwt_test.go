package security

import (
	"testing"
	"time"

	"github.com/stylisthq/stylist-server/internal/config"
)

func TestIssueAndParseToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}

	signed, err := IssueToken(cfg, 42, SubjectKindUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	subjectID, kind, errParse := ParseToken(cfg, signed)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if subjectID != 42 {
		t.Fatalf("expected subject 42, got %d", subjectID)
	}
	if kind != SubjectKindUser {
		t.Fatalf("expected kind %q, got %q", SubjectKindUser, kind)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	signed, err := IssueToken(config.JWTConfig{Secret: "secret-a", Expiry: time.Hour}, 7, SubjectKindAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, _, errParse := ParseToken(config.JWTConfig{Secret: "secret-b", Expiry: time.Hour}, signed); errParse == nil {
		t.Fatal("expected parse to fail with wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	signed, err := IssueToken(config.JWTConfig{Secret: "secret", Expiry: -time.Minute}, 7, SubjectKindUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, _, errParse := ParseToken(config.JWTConfig{Secret: "secret", Expiry: time.Hour}, signed); errParse == nil {
		t.Fatal("expected parse to fail for expired token")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword(hash, "hunter23") {
		t.Fatal("expected mismatched password to fail")
	}
}
