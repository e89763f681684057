package submissions

import (
	"encoding/json"
	"time"

	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/events"
)

// Status is the lifecycle state of a single dispatch attempt.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Submission is the audit record of one vendor dispatch. It is created
// PENDING before the vendor call and resolved exactly once.
type Submission struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	RepID           *string         `json:"rep_id"`
	IdempotencyKey  string          `json:"idempotency_key"`
	Status          Status          `json:"status"`
	HTTPCode        *int            `json:"http_code"`
	RequestPayload  json.RawMessage `json:"request_payload"`
	ResponsePayload json.RawMessage `json:"response_payload"`
	ErrorMessage    *string         `json:"error_message"`
	CreatedAt       time.Time       `json:"created_at"`
	ResolvedAt      *time.Time      `json:"resolved_at"`
}

// Resolution is everything written after the vendor call: the terminal
// submission state, the reconciled account status and the outbox event.
type Resolution struct {
	SubmissionID  string
	AccountID     string
	Status        Status
	HTTPCode      *int
	Response      json.RawMessage
	ErrorMessage  *string
	AccountStatus accounts.Status
	VendorUserID  *string
	ResolvedAt    time.Time
	Event         events.SubmissionResolvedV1
}

// RepInfo is the owning rep as it appears in the vendor payload.
type RepInfo struct {
	ID    string
	Name  string
	Email *string
}
