package reps

import (
	"context"
	"errors"
	"testing"
)

func TestCorpEmail(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		last   string
		taken  []string
		want   string
		domain string
	}{
		{name: "plain", first: "Jordan", last: "Lee", want: "jordan.lee@crm.example"},
		{name: "strips punctuation", first: " Mary-Kate ", last: "O'Neil", want: "marykate.oneil@crm.example"},
		{name: "drops accents", first: "José", last: "Nuñez", want: "jos.nuez@crm.example"},
		{name: "domain with at sign", first: "Al", last: "Bo", domain: "@CRM.example", want: "al.bo@crm.example"},
		{name: "first collision", first: "Jordan", last: "Lee", taken: []string{"jordan.lee@crm.example"}, want: "jordan.lee2@crm.example"},
		{
			name:  "several collisions",
			first: "Jordan", last: "Lee",
			taken: []string{"jordan.lee@crm.example", "jordan.lee2@crm.example", "jordan.lee3@crm.example"},
			want:  "jordan.lee4@crm.example",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			used := map[string]bool{}
			for _, e := range tc.taken {
				used[e] = true
			}
			domain := tc.domain
			if domain == "" {
				domain = "crm.example"
			}
			got, err := CorpEmail(context.Background(), tc.first, tc.last, domain, func(_ context.Context, email string) (bool, error) {
				return used[email], nil
			})
			if err != nil {
				t.Fatalf("corp email: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCorpEmail_Errors(t *testing.T) {
	never := func(context.Context, string) (bool, error) { return false, nil }
	if _, err := CorpEmail(context.Background(), "!!", "??", "crm.example", never); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	always := func(context.Context, string) (bool, error) { return true, nil }
	if _, err := CorpEmail(context.Background(), "a", "b", "crm.example", always); !errors.Is(err, ErrNoCorpEmailSlot) {
		t.Fatalf("expected ErrNoCorpEmailSlot, got %v", err)
	}
	boom := errors.New("db down")
	failing := func(context.Context, string) (bool, error) { return false, boom }
	if _, err := CorpEmail(context.Background(), "a", "b", "crm.example", failing); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}
