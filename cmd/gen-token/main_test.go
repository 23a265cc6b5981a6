package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"lexiboard/api"
)

func TestSignedTokenIsAcceptedByLocalAuth(t *testing.T) {
	secret := []byte("dev-secret")
	signer := tokenSigner{secret: secret, audience: "api://board", ttl: time.Hour, now: time.Now}

	tok, err := signer.sign("alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	userID, err := api.NewLocalAuth(secret, "api://board", "").UserIDFromAuthHeader("Bearer " + tok)
	if err != nil {
		t.Fatalf("token rejected: %v", err)
	}
	if userID != "alice" {
		t.Fatalf("unexpected user %q", userID)
	}
}

func TestSignRequiresSecret(t *testing.T) {
	if _, err := (tokenSigner{ttl: time.Hour, now: time.Now}).sign("alice"); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestUserIDFor(t *testing.T) {
	tests := []struct {
		name  string
		i     int
		count int
		args  []string
		want  string
	}{
		{name: "explicit", count: 1, args: []string{"bob"}, want: "bob"},
		{name: "single", count: 1, want: "u"},
		{name: "numbered", i: 2, count: 5, want: "u-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userIDFor(tt.i, tt.count, "u", 10, tt.args); got != tt.want {
				t.Fatalf("userIDFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	if err := writeTokens(path, []string{"a", "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []string
	if err := sonic.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected tokens: %v", got)
	}
}
