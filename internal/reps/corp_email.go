package reps

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

const maxCorpEmailAttempts = 50

// localPart lowercases both names, strips anything that is not a letter or
// digit and joins them with a dot.
func localPart(first, last string) string {
	f, l := slug(first), slug(last)
	switch {
	case f == "":
		return l
	case l == "":
		return f
	}
	return f + "." + l
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CorpEmail returns first.last@domain, or first.lastN@domain with the
// smallest N >= 2 that is not taken.
func CorpEmail(ctx context.Context, first, last, domain string, taken func(ctx context.Context, email string) (bool, error)) (string, error) {
	base := localPart(first, last)
	if base == "" {
		return "", ErrInvalidName
	}
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	for i := 1; i <= maxCorpEmailAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		email := candidate + "@" + domain
		used, err := taken(ctx, email)
		if err != nil {
			return "", fmt.Errorf("reps: check corp email: %w", err)
		}
		if !used {
			return email, nil
		}
	}
	return "", ErrNoCorpEmailSlot
}
