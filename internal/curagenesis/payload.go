package curagenesis

// IntakePayload is the body of POST /v1/intake. Unset local fields are sent
// as JSON null rather than defaulted.
type IntakePayload struct {
	ExternalID string         `json:"external_id"`
	Practice   PracticeBlock  `json:"practice"`
	Address    AddressBlock   `json:"address"`
	Contacts   []ContactBlock `json:"contacts"`
	Rep        *RepBlock      `json:"rep"`
}

type PracticeBlock struct {
	Name      string  `json:"name"`
	Specialty *string `json:"specialty"`
	TaxID     *string `json:"tax_id"`
	NPI       *string `json:"npi"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Website   *string `json:"website"`
}

type AddressBlock struct {
	Line1 *string `json:"line1"`
	Line2 *string `json:"line2"`
	City  *string `json:"city"`
	State *string `json:"state"`
	Zip   *string `json:"zip"`
}

type ContactBlock struct {
	Type      string  `json:"type"`
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	Title     *string `json:"title"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

type RepBlock struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}
