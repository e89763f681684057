package reps

import (
	"net/mail"
	"strings"
	"time"
)

// Status is the onboarding state of a sales rep.
type Status string

const (
	StatusInvited Status = "INVITED"
	StatusActive  Status = "ACTIVE"
)

// Rep is an independent sales rep.
type Rep struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	PersonalEmail string     `json:"personal_email"`
	CorpEmail     string     `json:"corp_email"`
	Status        Status     `json:"status"`
	InvitedAt     time.Time  `json:"invited_at"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// FullName joins first and last name.
func (r *Rep) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// InviteRequest is the admin invite form.
type InviteRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	PersonalEmail string `json:"personal_email"`
}

func (r *InviteRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.PersonalEmail = strings.ToLower(strings.TrimSpace(r.PersonalEmail))
}

func (r *InviteRequest) Validate() error {
	if r.FirstName == "" || r.LastName == "" {
		return ErrInvalidName
	}
	if localPart(r.FirstName, r.LastName) == "" {
		return ErrInvalidName
	}
	if addr, err := mail.ParseAddress(r.PersonalEmail); err != nil || addr.Address != r.PersonalEmail {
		return ErrInvalidEmail
	}
	return nil
}
