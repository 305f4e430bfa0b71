package models

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeRunActive        = "RUN_ACTIVE"
	ErrCodeRunCancelled     = "RUN_CANCELLED"
	ErrCodeStageFailed      = "STAGE_FAILED"
	ErrCodeAssemblyFailed   = "ASSEMBLY_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)
