package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewSigner_RequiresSecret(t *testing.T) {
	if _, err := NewSigner(nil); !errors.Is(err, ErrNoSecrets) {
		t.Errorf("err = %v, want ErrNoSecrets", err)
	}
	if _, err := NewSigner([]string{""}); !errors.Is(err, ErrNoSecrets) {
		t.Errorf("err = %v, want ErrNoSecrets", err)
	}
}

func TestSigner_SignAndVerify(t *testing.T) {
	signer, err := NewSigner([]string{"s3cr3t"})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	token, err := signer.Sign("session-id", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if strings.Contains(token, "s3cr3t") {
		t.Error("token must not contain the secret")
	}

	id, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "session-id" {
		t.Errorf("id = %q, want %q", id, "session-id")
	}
}

// 古いシークレットで署名されたトークンもローテーション後に検証できることを確認する。
func TestSigner_Verify_RotatedSecret(t *testing.T) {
	old, _ := NewSigner([]string{"old-secret"})
	token, err := old.Sign("sid", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	rotated, _ := NewSigner([]string{"new-secret", "old-secret"})
	id, err := rotated.Verify(token)
	if err != nil {
		t.Fatalf("Verify with rotated secrets: %v", err)
	}
	if id != "sid" {
		t.Errorf("id = %q, want %q", id, "sid")
	}

	// 新しいトークンは先頭のシークレットで署名される
	fresh, _ := rotated.Sign("sid", time.Hour)
	newOnly, _ := NewSigner([]string{"new-secret"})
	if _, err := newOnly.Verify(fresh); err != nil {
		t.Errorf("expected token signed with newest secret: %v", err)
	}
}

func TestSigner_Verify_UnknownSecret(t *testing.T) {
	a, _ := NewSigner([]string{"secret-a"})
	b, _ := NewSigner([]string{"secret-b"})

	token, _ := a.Sign("sid", time.Hour)
	if _, err := b.Verify(token); err == nil {
		t.Error("expected verification failure for foreign secret")
	}
}

func TestSigner_Verify_Expired(t *testing.T) {
	signer, _ := NewSigner([]string{"secret"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }

	token, err := signer.Sign("sid", time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := signer.Verify(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestSigner_Verify_Tampered(t *testing.T) {
	signer, _ := NewSigner([]string{"secret"})
	token, _ := signer.Sign("sid", time.Hour)

	for _, tampered := range []string{
		"",
		"garbage",
		token + "x",
		strings.Replace(token, ".", ".e30.", 1),
	} {
		if _, err := signer.Verify(tampered); err == nil {
			t.Errorf("expected error for %q", tampered)
		}
	}
}
