package curagenesis

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderTimestamp = "X-CuraGenesis-Timestamp"
	HeaderSignature = "X-CuraGenesis-Signature"
)

// Verifier checks webhook signatures: hex HMAC-SHA256 of timestamp + "." + body.
type Verifier struct {
	secret  string
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier builds a verifier. maxSkew defaults to five minutes.
func NewVerifier(secret string, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}
	return &Verifier{secret: secret, maxSkew: maxSkew, now: time.Now}
}

// Verify validates the timestamp and signature headers against payload.
func (v *Verifier) Verify(timestamp, signature string, payload []byte) error {
	if v == nil || v.secret == "" {
		return ErrWebhookSecret
	}
	ts := strings.TrimSpace(timestamp)
	sig := strings.ToLower(strings.TrimSpace(signature))
	if ts == "" || sig == "" {
		return ErrSignatureMissing
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("curagenesis: invalid signature timestamp: %w", err)
	}
	if diff := v.now().Sub(time.Unix(sec, 0)); diff > v.maxSkew || diff < -v.maxSkew {
		return ErrSignatureSkew
	}
	expected := Sign(v.secret, ts, payload)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the signature header value for a payload.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	return hex.EncodeToString(mac.Sum(nil))
}
