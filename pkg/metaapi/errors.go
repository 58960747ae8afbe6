package metaapi

import (
	"fmt"
	"net/http"
)

// APIError is the decoded Graph API error envelope
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	FBTraceID  string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error %d (code %d, subcode %d): %s", e.StatusCode, e.Code, e.Subcode, e.Message)
}

// Graph API error codes that matter for control flow
const (
	codeAPIUnknown        = 1
	codeAPITooManyCalls   = 4
	codeUserTooManyCalls  = 17
	codeAccessTokenError  = 190
	codeAppRateLimit      = 32
	codeCustomRateLimit   = 613
)

// IsRateLimited reports whether the error is a Graph API throttle response
func (e *APIError) IsRateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	switch e.Code {
	case codeAPITooManyCalls, codeUserTooManyCalls, codeAppRateLimit, codeCustomRateLimit:
		return true
	}
	return false
}

// IsAuth reports whether the error means the access token is bad or expired
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		e.Code == codeAccessTokenError
}

// IsNotFound reports whether the referenced object does not exist
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// retryable reports whether a request that drew this status is worth
// retrying. Client errors are final, except timeouts and throttles.
func retryable(statusCode int) bool {
	if statusCode >= http.StatusInternalServerError {
		return true
	}
	return statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests
}
