package storefrontsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyCart is returned when the API reports success without a cart payload.
	ErrEmptyCart = errors.New("storefrontsdk: empty cart payload")

	// ErrMissingUser is returned when a session response carries no user.
	ErrMissingUser = errors.New("storefrontsdk: response missing user")

	// ErrMissingToken is returned when an OAuth callback carries no token.
	ErrMissingToken = errors.New("storefrontsdk: callback missing access token")
)

// APIError is a failed storefront API response.
type APIError struct {
	// StatusCode is the envelope statusCode, or the HTTP status when absent
	StatusCode int

	// Message is the server's human-readable reason
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("storefront api: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is an APIError for a rejected credential.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// parseErrorResponse builds an APIError from a non-2xx response, taking the
// message from the envelope when the body is one.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{
			StatusCode: envelopeStatus(env.StatusCode, resp.StatusCode),
			Message:    env.Message,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
}
