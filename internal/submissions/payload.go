package submissions

import (
	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/curagenesis"
)

// BuildPayload flattens an account, its contacts and the optional owning rep
// into the vendor intake shape. Unset fields stay nil so they encode as null.
func BuildPayload(acct *accounts.Account, rep *RepInfo) *curagenesis.IntakePayload {
	payload := &curagenesis.IntakePayload{
		ExternalID: acct.ID,
		Practice: curagenesis.PracticeBlock{
			Name:      acct.Name,
			Specialty: acct.Specialty,
			TaxID:     acct.TaxID,
			NPI:       acct.NPI,
			Phone:     acct.Phone,
			Email:     acct.Email,
			Website:   acct.Website,
		},
		Address: curagenesis.AddressBlock{
			Line1: acct.AddressLine1,
			Line2: acct.AddressLine2,
			City:  acct.City,
			State: acct.State,
			Zip:   acct.Zip,
		},
		Contacts: make([]curagenesis.ContactBlock, 0, len(acct.Contacts)),
	}
	for _, c := range acct.Contacts {
		payload.Contacts = append(payload.Contacts, curagenesis.ContactBlock{
			Type:      string(c.Kind),
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Title:     c.Title,
			Email:     c.Email,
			Phone:     c.Phone,
		})
	}
	if rep != nil {
		payload.Rep = &curagenesis.RepBlock{ID: rep.ID, Name: rep.Name, Email: rep.Email}
	}
	return payload
}
