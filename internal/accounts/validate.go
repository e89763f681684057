package accounts

import (
	"fmt"
	"net/mail"
	"strings"
)

var usStates = map[string]struct{}{}

func init() {
	for _, code := range strings.Fields(`AL AK AZ AR CA CO CT DE DC FL GA HI ID IL IN IA KS KY LA ME MD MA MI MN MS
		MO MT NE NV NH NJ NM NY NC ND OH OK OR PA RI SC SD TN TX UT VT VA WA WV WI WY PR VI GU AS MP`) {
		usStates[code] = struct{}{}
	}
}

// Normalize trims input and collapses empty optional fields to nil.
func (r *CreateAccountRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Specialty = clean(r.Specialty)
	r.State = clean(upper(r.State))
	r.AddressLine1 = clean(r.AddressLine1)
	r.AddressLine2 = clean(r.AddressLine2)
	r.City = clean(r.City)
	r.Zip = clean(r.Zip)
	r.TaxID = clean(r.TaxID)
	r.NPI = clean(r.NPI)
	r.Phone = clean(r.Phone)
	r.Email = clean(r.Email)
	r.Website = clean(r.Website)
	r.RepID = clean(r.RepID)
	for i := range r.Contacts {
		r.Contacts[i].Normalize()
	}
}

// Validate validates the intake request. Call Normalize first.
func (r *CreateAccountRequest) Validate() error {
	if r.Name == "" {
		return ErrInvalidName
	}
	if err := validateIdentity(r.State, r.NPI, r.Email); err != nil {
		return err
	}
	for i := range r.Contacts {
		if err := r.Contacts[i].Validate(); err != nil {
			return fmt.Errorf("contact %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks only the fields present in the patch.
func (r *UpdateAccountRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	return validateIdentity(clean(upper(r.State)), clean(r.NPI), clean(r.Email))
}

// Normalize trims contact input.
func (r *CreateContactRequest) Normalize() {
	r.Kind = ContactKind(strings.ToLower(strings.TrimSpace(string(r.Kind))))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = clean(r.LastName)
	r.Title = clean(r.Title)
	r.Email = clean(r.Email)
	r.Phone = clean(r.Phone)
}

// Validate validates a contact. Call Normalize first.
func (r *CreateContactRequest) Validate() error {
	if !r.Kind.valid() {
		return ErrInvalidContactKind
	}
	if r.FirstName == "" {
		return ErrInvalidContactName
	}
	if r.Email == nil && r.Phone == nil {
		return ErrMissingContactInfo
	}
	if r.Email != nil && !validEmail(*r.Email) {
		return ErrInvalidEmail
	}
	return nil
}

func validateIdentity(state, npi, email *string) error {
	if state != nil {
		if _, ok := usStates[*state]; !ok {
			return ErrInvalidState
		}
	}
	if npi != nil && !ValidNPI(*npi) {
		return ErrInvalidNPI
	}
	if email != nil && !validEmail(*email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidNPI checks length and the Luhn check digit computed over the "80840"
// health-industry prefix followed by the first nine NPI digits.
func ValidNPI(npi string) bool {
	if len(npi) != 10 {
		return false
	}
	digits := "80840" + npi
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func validEmail(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}
