package accounts

import (
	"errors"
	"testing"
)

func TestValidNPI(t *testing.T) {
	cases := []struct {
		npi  string
		want bool
	}{
		{"1234567893", true},
		{"1245319599", true},
		{"1234567890", false},
		{"123456789", false},
		{"12345678931", false},
		{"12345678a3", false},
	}
	for _, tc := range cases {
		if got := ValidNPI(tc.npi); got != tc.want {
			t.Errorf("ValidNPI(%q) = %v, want %v", tc.npi, got, tc.want)
		}
	}
}

func TestCreateAccountRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  CreateAccountRequest
		want error
	}{
		{name: "missing name", req: CreateAccountRequest{Name: "  "}, want: ErrInvalidName},
		{name: "bad state", req: CreateAccountRequest{Name: "A", State: strPtr("Texas")}, want: ErrInvalidState},
		{name: "bad email", req: CreateAccountRequest{Name: "A", Email: strPtr("not-an-email")}, want: ErrInvalidEmail},
		{name: "display-name email", req: CreateAccountRequest{Name: "A", Email: strPtr("Front Desk <fd@x.example>")}, want: ErrInvalidEmail},
		{name: "bad contact", req: CreateAccountRequest{Name: "A", Contacts: []CreateContactRequest{{Kind: "nurse", FirstName: "B", Phone: strPtr("1")}}}, want: ErrInvalidContactKind},
		{name: "blank optionals ok", req: CreateAccountRequest{Name: "A", State: strPtr(" "), NPI: strPtr("")}},
		{name: "lowercase state ok", req: CreateAccountRequest{Name: "A", State: strPtr("ny")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			req.Normalize()
			err := req.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected IsValidation to report true for %v", err)
			}
		})
	}
}

func TestIsValidation_FalseForLookupErrors(t *testing.T) {
	if IsValidation(ErrAccountNotFound) || IsValidation(ErrHasSubmissions) {
		t.Fatal("lookup errors must not be treated as validation")
	}
}
