// Package identity resolves stable opaque user IDs from bearer tokens,
// minting anonymous identities for clients that arrive without one.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for malformed, mis-signed or expired tokens.
var ErrInvalidToken = errors.New("invalid identity token")

// Provider signs and verifies HS256 identity tokens. The token subject is
// the opaque user ID that scopes every document collection.
type Provider struct {
	secret   []byte
	tokenTTL time.Duration
	clock    func() time.Time
}

func NewProvider(secret string, tokenTTL time.Duration) *Provider {
	return &Provider{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		clock:    time.Now,
	}
}

// SignIn exchanges an optional token for a user ID. A valid token keeps its
// identity; an empty token mints a fresh anonymous user with a signed token
// so the client holds a stable ID across requests.
func (p *Provider) SignIn(token string) (string, string, error) {
	if token != "" {
		userID, err := p.Verify(token)
		if err != nil {
			return "", "", err
		}
		return userID, token, nil
	}

	userID := uuid.NewString()
	signed, err := p.mint(userID)
	if err != nil {
		return "", "", err
	}
	return userID, signed, nil
}

// Verify returns the subject of a valid token.
func (p *Provider) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.clock))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (p *Provider) mint(userID string) (string, error) {
	now := p.clock()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}
