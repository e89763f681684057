package reps

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestInviteTokens_RoundTrip(t *testing.T) {
	tokens := NewInviteTokens("invite-secret", time.Hour)
	token, expires, err := tokens.Issue("rep-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d := time.Until(expires); d <= 59*time.Minute || d > time.Hour {
		t.Fatalf("unexpected expiry %v", expires)
	}
	repID, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if repID != "rep-1" {
		t.Fatalf("expected rep-1, got %s", repID)
	}
}

func TestInviteTokens_Expired(t *testing.T) {
	tokens := NewInviteTokens("invite-secret", time.Hour)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	token, _, err := tokens.Issue("rep-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := tokens.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestInviteTokens_Rejects(t *testing.T) {
	tokens := NewInviteTokens("invite-secret", time.Hour)
	other := NewInviteTokens("other-secret", time.Hour)
	foreign, _, err := other.Issue("rep-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Verify(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	adminLike, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "rep-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("invite-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tokens.Verify(adminLike); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without invite purpose, got %v", err)
	}

	if _, err := tokens.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	disabled := NewInviteTokens("", 0)
	if _, _, err := disabled.Issue("rep-1"); !errors.Is(err, ErrTokensDisabled) {
		t.Fatalf("expected ErrTokensDisabled, got %v", err)
	}
}
