package api

import (
	"encoding/json"
	"net/http"

	"github.com/jeromeof/pywiim-sub000/internal/corerr"
)

// =============================================================================
// Stripe API Standard Response Types
// =============================================================================

// StripeListResponse is the Stripe-style list response for all collection endpoints.
// Example: {"object": "list", "data": [...], "has_more": false, "url": "/v1/groups"}
type StripeListResponse struct {
	Object  string `json:"object"`   // Always "list"
	Data    any    `json:"data"`     // Array of resources
	HasMore bool   `json:"has_more"` // Whether more items exist beyond this page
	URL     string `json:"url"`      // The URL for this list endpoint
}

// ErrorType categorizes errors following Stripe API conventions.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	ErrorTypeAPIError       ErrorType = "api_error"
)

// StripeErrorBody is the Stripe-style error payload.
// Format: {"type": "invalid_request_error", "code": "NOT_FOUND", "message": "..."}
type StripeErrorBody struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// StripeErrorResponse wraps errors in Stripe format.
type StripeErrorResponse struct {
	Error StripeErrorBody `json:"error"`
}

// =============================================================================
// Core Response Functions
// =============================================================================

// WriteJSON sends a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError serializes err into the Stripe-style error response, mapping
// this module's corerr taxonomy onto an HTTP status code.
// Response format: {"error": {"type": "...", "code": "...", "message": "..."}}
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	errType := ErrorTypeAPIError
	if status >= 400 && status < 500 {
		errType = ErrorTypeInvalidRequest
	}

	response := StripeErrorResponse{
		Error: StripeErrorBody{
			Type:    errType,
			Code:    code,
			Message: err.Error(),
		},
	}
	_ = WriteJSON(w, status, response)
}

// classify maps a corerr error to an HTTP status code and a stable string
// code for the response body. Unrecognized errors fall back to 500.
func classify(err error) (status int, code string) {
	switch {
	case corerr.IsUnsupported(err):
		return http.StatusNotImplemented, "UNSUPPORTED_OPERATION"
	case corerr.IsInconsistentState(err):
		return http.StatusConflict, "INCONSISTENT_STATE"
	case corerr.IsPreconditionFailure(err):
		return http.StatusPreconditionFailed, "PRECONDITION_FAILED"
	case corerr.IsTimeout(err):
		return http.StatusGatewayTimeout, "DEVICE_TIMEOUT"
	case corerr.IsConnectionFailure(err):
		return http.StatusBadGateway, "DEVICE_UNREACHABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// =============================================================================
// Stripe-Style Response Helpers
// =============================================================================

// WriteList writes a Stripe-style list response.
// Example: WriteList(w, "/v1/groups", groups, false)
// Produces: {"object": "list", "data": [...], "has_more": false, "url": "/v1/groups"}
func WriteList(w http.ResponseWriter, url string, data any, hasMore bool) error {
	return WriteJSON(w, http.StatusOK, StripeListResponse{
		Object:  "list",
		Data:    data,
		HasMore: hasMore,
		URL:     url,
	})
}

// WriteResource writes a single resource directly (Stripe-style, no wrapper).
// The resource should already have an "object" field set.
// Example: WriteResource(w, http.StatusOK, state)
// Produces: {"object": "player_state", "id": "...", ...}
func WriteResource(w http.ResponseWriter, status int, resource any) error {
	return WriteJSON(w, status, resource)
}
