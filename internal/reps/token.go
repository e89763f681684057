package reps

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const invitePurpose = "rep_invite"

type inviteClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// InviteTokens signs and verifies HMAC invite tokens whose subject is the rep id.
type InviteTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewInviteTokens(secret string, ttl time.Duration) *InviteTokens {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &InviteTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for repID and its expiry.
func (t *InviteTokens) Issue(repID string) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, ErrTokensDisabled
	}
	now := t.now()
	expires := now.Add(t.ttl)
	claims := inviteClaims{
		Purpose: invitePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   repID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reps: sign invite token: %w", err)
	}
	return signed, expires.UTC(), nil
}

// Verify returns the rep id carried by a valid invite token.
func (t *InviteTokens) Verify(token string) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrTokensDisabled
	}
	claims := inviteClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !parsed.Valid || claims.Purpose != invitePurpose || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
