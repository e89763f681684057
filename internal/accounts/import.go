package accounts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrImportHeader is returned when the CSV header lacks a name column.
var ErrImportHeader = errors.New("csv header must include a name column")

// ImportRowError describes a rejected CSV line.
type ImportRowError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Created []string         `json:"created"`
	Errors  []ImportRowError `json:"errors"`
	Total   int              `json:"total"`
}

// Import reads a CSV file of practices and creates one PENDING account per
// valid row. Rows that fail validation are reported by line number and the
// remaining rows are still processed.
func Import(ctx context.Context, repo Repository, r io.Reader, repID *string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrImportHeader
		}
		return nil, fmt.Errorf("accounts: read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, ErrImportHeader
	}

	result := &ImportResult{Created: []string{}, Errors: []ImportRowError{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Total++
				result.Errors = append(result.Errors, ImportRowError{Line: parseErr.Line, Error: parseErr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("accounts: read csv: %w", err)
		}
		if blankRecord(record) {
			continue
		}
		result.Total++
		line, _ := reader.FieldPos(0)

		field := func(key string) *string {
			idx, ok := cols[key]
			if !ok || idx >= len(record) {
				return nil
			}
			v := record[idx]
			return &v
		}
		value := func(key string) string {
			if p := field(key); p != nil {
				return *p
			}
			return ""
		}

		req := &CreateAccountRequest{
			Name:         value("name"),
			Specialty:    field("specialty"),
			State:        field("state"),
			AddressLine1: field("address1"),
			AddressLine2: field("address2"),
			City:         field("city"),
			Zip:          field("zip"),
			TaxID:        field("tax_id"),
			NPI:          field("npi"),
			Phone:        field("phone"),
			Email:        field("email"),
			Website:      field("website"),
			RepID:        repID,
		}
		if strings.TrimSpace(value("contact_name")) != "" {
			first, last := splitName(value("contact_name"))
			kind := ContactKind(value("contact_kind"))
			if strings.TrimSpace(string(kind)) == "" {
				kind = ContactAdmin
			}
			req.Contacts = []CreateContactRequest{{
				Kind:      kind,
				FirstName: first,
				LastName:  last,
				Email:     field("contact_email"),
				Phone:     field("contact_phone"),
			}}
		}

		acct, err := repo.Create(ctx, req)
		if err != nil {
			if !IsValidation(err) {
				return nil, err
			}
			result.Errors = append(result.Errors, ImportRowError{Line: line, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, acct.ID)
	}
	return result, nil
}

func splitName(full string) (string, *string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	last := strings.Join(parts[1:], " ")
	return parts[0], &last
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
