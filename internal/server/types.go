// Package server exposes the skill over HTTP: one POST endpoint receives
// platform request envelopes, plus a health probe.
package server

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidJSON          = "INVALID_JSON"
	CodeValidation           = "VALIDATION_ERROR"
	CodeForbiddenApplication = "FORBIDDEN_APPLICATION"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInvalidEvent         = "INVALID_EVENT"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-200 answer. The platform only
// reads 200 envelopes; these are for operators and test tooling.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
