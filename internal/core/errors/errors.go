package errors

const (
	HttpInternalError        = "internal_error"
	HttpPlanNotFoundError    = "plan_not_found"
	HttpExecutionDisabled    = "execution_disabled"
	HttpStatementFailedError = "statement_failed"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
