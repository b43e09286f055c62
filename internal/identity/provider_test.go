package identity

import (
	"errors"
	"testing"
	"time"
)

func TestSignInMintsAnonymousIdentity(t *testing.T) {
	provider := NewProvider("secret", time.Hour)

	userID, token, err := provider.SignIn("")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if userID == "" || token == "" {
		t.Fatalf("expected minted identity, got %q / %q", userID, token)
	}

	verified, err := provider.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified != userID {
		t.Fatalf("expected subject %s, got %s", userID, verified)
	}
}

func TestSignInKeepsExistingIdentity(t *testing.T) {
	provider := NewProvider("secret", time.Hour)

	userID, token, err := provider.SignIn("")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	again, returned, err := provider.SignIn(token)
	if err != nil {
		t.Fatalf("sign in with token: %v", err)
	}
	if again != userID {
		t.Fatalf("expected stable user ID, got %s and %s", userID, again)
	}
	if returned != token {
		t.Fatalf("expected token passed through unchanged")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	provider := NewProvider("secret", time.Hour)
	if _, err := provider.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	provider := NewProvider("secret", time.Hour)
	other := NewProvider("different", time.Hour)

	_, token, err := other.SignIn("")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, err := provider.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	provider := NewProvider("secret", time.Minute)

	_, token, err := provider.SignIn("")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	provider.clock = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := provider.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
