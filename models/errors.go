package models

// Error codes returned in API error bodies. Internal error details are
// logged server-side and never serialized into a response.
const (
	CodeValidationFailed  = "validation_failed"
	CodePopupNotFound     = "popup_not_found"
	CodeRateLimited       = "rate_limited"
	CodePersistenceFailed = "persistence_failed"
)

// APIError is the JSON error envelope for every non-2xx response.
// Errors lists the names of failing request fields on validation failures.
type APIError struct {
	Success bool     `json:"success"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func NewAPIError(code, message string, fieldErrors ...string) APIError {
	return APIError{
		Success: false,
		Code:    code,
		Message: message,
		Errors:  fieldErrors,
	}
}
