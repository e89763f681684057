// Package actor carries the authenticated rep through request contexts.
package actor

import "context"

type ctxKey string

const repKey ctxKey = "crm.rep_id"

// WithRepID stores the acting rep id in context.
func WithRepID(ctx context.Context, repID string) context.Context {
	return context.WithValue(ctx, repKey, repID)
}

// RepIDFromContext extracts the acting rep id if present.
func RepIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(repKey)
	if val == nil {
		return "", false
	}
	repID, ok := val.(string)
	return repID, ok && repID != ""
}

// RepIDPtr returns the acting rep id as a nullable value for persistence.
func RepIDPtr(ctx context.Context) *string {
	if repID, ok := RepIDFromContext(ctx); ok {
		return &repID
	}
	return nil
}
