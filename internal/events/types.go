package events

import "time"

const (
	TypeSubmissionResolved = "submission.resolved.v1"
	TypeRepInvited         = "rep.invited.v1"
)

// SubmissionResolvedV1 is emitted in the same transaction that resolves a
// submission and reconciles the account status.
type SubmissionResolvedV1 struct {
	SubmissionID   string    `json:"submission_id"`
	AccountID      string    `json:"account_id"`
	AccountName    string    `json:"account_name"`
	RepID          string    `json:"rep_id,omitempty"`
	Status         string    `json:"status"`
	HTTPCode       int       `json:"http_code,omitempty"`
	Message        string    `json:"message,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

func (SubmissionResolvedV1) EventType() string { return TypeSubmissionResolved }

// RepInvitedV1 carries what the invite email needs.
type RepInvitedV1 struct {
	RepID         string    `json:"rep_id"`
	FirstName     string    `json:"first_name"`
	PersonalEmail string    `json:"personal_email"`
	CorpEmail     string    `json:"corp_email"`
	InviteURL     string    `json:"invite_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (RepInvitedV1) EventType() string { return TypeRepInvited }
