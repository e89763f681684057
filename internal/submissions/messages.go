package submissions

import (
	"fmt"
	"net/http"
)

// FriendlyMessage explains a vendor status code to the rep. statusCode 0
// means no response arrived; timedOut marks expiry of the call deadline.
func FriendlyMessage(statusCode int, timedOut bool) string {
	switch {
	case timedOut, statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		return "The request to CuraGenesis timed out. Retry in a few minutes or escalate if it keeps happening."
	case statusCode == 0:
		return "Could not reach CuraGenesis. Retry in a few minutes or escalate if it keeps happening."
	case statusCode == http.StatusConflict:
		return "CuraGenesis already has this practice on file (likely duplicate practice)."
	case statusCode == http.StatusUnprocessableEntity:
		return "The vendor rejected some fields. Check the NPI, email, and state values."
	case statusCode == http.StatusBadRequest:
		return "CuraGenesis could not read the submission. Check the practice and contact details."
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return "CuraGenesis rejected our API credentials. Contact an administrator."
	case statusCode == http.StatusTooManyRequests:
		return "CuraGenesis is rate limiting submissions. Try again in a minute."
	case statusCode >= 500:
		return "CuraGenesis is temporarily unavailable. Try again later."
	default:
		return fmt.Sprintf("CuraGenesis rejected the submission (HTTP %d).", statusCode)
	}
}

// classify maps a failed call onto an error kind and the HTTP status we
// answer with.
func classify(statusCode int, timedOut bool) (VendorErrorKind, int) {
	switch {
	case timedOut, statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		return KindUnavailable, http.StatusGatewayTimeout
	case statusCode == 0, statusCode >= 500:
		return KindUnavailable, http.StatusBadGateway
	case statusCode == http.StatusTooManyRequests:
		return KindUnavailable, http.StatusServiceUnavailable
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		// Our credentials, not the caller's session.
		return KindRejection, http.StatusBadGateway
	case statusCode == http.StatusBadRequest, statusCode == http.StatusConflict, statusCode == http.StatusUnprocessableEntity:
		return KindRejection, statusCode
	case statusCode >= 400:
		// Other vendor 4xx codes must not read as our own (a vendor 404 is not an unknown account).
		return KindRejection, http.StatusUnprocessableEntity
	default:
		return KindRejection, http.StatusBadGateway
	}
}
