package accounts

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a practice account.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusActive    Status = "ACTIVE"
)

// NormalizeStatus maps stored values, including the legacy lowercase "sent" and
// "failed" markers, onto the current status set. A failed dispatch leaves an
// account eligible for another attempt, so "failed" reads as PENDING.
func NormalizeStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUBMITTED", "SENT":
		return StatusSubmitted
	case "ACTIVE":
		return StatusActive
	default:
		return StatusPending
	}
}

// ContactKind classifies the person behind a contact.
type ContactKind string

const (
	ContactClinical ContactKind = "clinical"
	ContactProvider ContactKind = "provider"
	ContactAdmin    ContactKind = "admin"
	ContactBilling  ContactKind = "billing"
)

func (k ContactKind) valid() bool {
	switch k {
	case ContactClinical, ContactProvider, ContactAdmin, ContactBilling:
		return true
	}
	return false
}

// Account is a practice tracked by the CRM. Optional identity fields are
// pointers so an unset value survives as null all the way to the vendor.
type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Specialty    *string    `json:"specialty"`
	State        *string    `json:"state"`
	AddressLine1 *string    `json:"address_line1"`
	AddressLine2 *string    `json:"address_line2"`
	City         *string    `json:"city"`
	Zip          *string    `json:"zip"`
	TaxID        *string    `json:"tax_id"`
	NPI          *string    `json:"npi"`
	Phone        *string    `json:"phone"`
	Email        *string    `json:"email"`
	Website      *string    `json:"website"`
	Status       Status     `json:"status"`
	VendorUserID *string    `json:"vendor_user_id"`
	RepID        *string    `json:"rep_id"`
	OrderCount   int        `json:"order_count"`
	SyncCount    int        `json:"sync_count"`
	LastOrderAt  *time.Time `json:"last_order_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Contacts     []Contact  `json:"contacts,omitempty"`
}

// Contact is a person attached to exactly one account.
type Contact struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account_id"`
	Kind      ContactKind `json:"kind"`
	FirstName string      `json:"first_name"`
	LastName  *string     `json:"last_name"`
	Title     *string     `json:"title"`
	Email     *string     `json:"email"`
	Phone     *string     `json:"phone"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CreateAccountRequest is the intake form payload.
type CreateAccountRequest struct {
	Name         string                 `json:"name"`
	Specialty    *string                `json:"specialty"`
	State        *string                `json:"state"`
	AddressLine1 *string                `json:"address_line1"`
	AddressLine2 *string                `json:"address_line2"`
	City         *string                `json:"city"`
	Zip          *string                `json:"zip"`
	TaxID        *string                `json:"tax_id"`
	NPI          *string                `json:"npi"`
	Phone        *string                `json:"phone"`
	Email        *string                `json:"email"`
	Website      *string                `json:"website"`
	RepID        *string                `json:"rep_id"`
	Contacts     []CreateContactRequest `json:"contacts"`
}

// UpdateAccountRequest patches identity fields. Nil pointers leave values untouched.
type UpdateAccountRequest struct {
	Name         *string `json:"name"`
	Specialty    *string `json:"specialty"`
	State        *string `json:"state"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	Zip          *string `json:"zip"`
	TaxID        *string `json:"tax_id"`
	NPI          *string `json:"npi"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	Website      *string `json:"website"`
	RepID        *string `json:"rep_id"`
}

// CreateContactRequest adds or replaces a contact.
type CreateContactRequest struct {
	Kind      ContactKind `json:"kind"`
	FirstName string      `json:"first_name"`
	LastName  *string     `json:"last_name"`
	Title     *string     `json:"title"`
	Email     *string     `json:"email"`
	Phone     *string     `json:"phone"`
}

// ListFilter narrows account listings.
type ListFilter struct {
	Status Status
	RepID  string
	Limit  int
	Offset int
}

// VendorUpdate is an inbound vendor event already resolved to an account.
type VendorUpdate struct {
	AccountID    string
	VendorUserID *string
	OrderPlaced  bool
	Activate     bool
	OccurredAt   time.Time
}

func (u *UpdateAccountRequest) apply(a *Account) {
	if u.Name != nil {
		a.Name = strings.TrimSpace(*u.Name)
	}
	setIf(&a.Specialty, u.Specialty)
	setIf(&a.State, upper(u.State))
	setIf(&a.AddressLine1, u.AddressLine1)
	setIf(&a.AddressLine2, u.AddressLine2)
	setIf(&a.City, u.City)
	setIf(&a.Zip, u.Zip)
	setIf(&a.TaxID, u.TaxID)
	setIf(&a.NPI, u.NPI)
	setIf(&a.Phone, u.Phone)
	setIf(&a.Email, u.Email)
	setIf(&a.Website, u.Website)
	setIf(&a.RepID, u.RepID)
}

func setIf(dst **string, src *string) {
	if src == nil {
		return
	}
	v := strings.TrimSpace(*src)
	if v == "" {
		*dst = nil
		return
	}
	*dst = &v
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*s))
	return &v
}

// clean trims optional strings and collapses blanks to nil.
func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
