package documents

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the onboarding document type.
type Kind string

const (
	KindW9           Kind = "W9"
	KindNDA          Kind = "NDA"
	KindRepAgreement Kind = "REP_AGREEMENT"
)

const (
	StatusPending  = "PENDING"
	StatusUploaded = "UPLOADED"
)

var titles = map[Kind]string{
	KindW9:           "W-9",
	KindNDA:          "Non-Disclosure Agreement",
	KindRepAgreement: "Independent Rep Agreement",
}

// Document is one onboarding file owed by a rep.
type Document struct {
	ID          string     `json:"id"`
	RepID       string     `json:"rep_id"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	S3Key       *string    `json:"s3_key,omitempty"`
	ContentType *string    `json:"content_type,omitempty"`
	SizeBytes   int64      `json:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`
}

// OnboardingStubs returns the pending documents every new rep must upload.
func OnboardingStubs(repID string, now time.Time) []Document {
	kinds := []Kind{KindW9, KindNDA, KindRepAgreement}
	out := make([]Document, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, Document{
			ID:        uuid.NewString(),
			RepID:     repID,
			Kind:      k,
			Title:     titles[k],
			Status:    StatusPending,
			CreatedAt: now,
		})
	}
	return out
}
