// Package dto holds the request and response shapes of the price API and the ingestion runs
package dto

// APIResponse is the envelope of every JSON response; Data on success, Error on failure
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// ErrorDetail carries the machine-readable error code
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
