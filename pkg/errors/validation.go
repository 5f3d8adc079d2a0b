package errors

// ValidationDetails carries a machine readable reason plus the parameters a
// client needs to render the failure.
type ValidationDetails struct {
	Field   string         `json:"field"`
	Reason  string         `json:"reason"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// NewValidation builds a validation error with structured details.
func NewValidation(field, reason, message string) *Error {
	return New(CodeValidation, message).WithDetails(ValidationDetails{
		Field:   field,
		Reason:  reason,
		Message: message,
	})
}

// WithParam attaches a parameter to the validation details of e. Errors
// without validation details are returned unchanged.
func (e *Error) WithParam(key string, value any) *Error {
	if e == nil {
		return nil
	}
	details, ok := e.details.(ValidationDetails)
	if !ok {
		return e
	}
	if details.Params == nil {
		details.Params = map[string]any{}
	}
	details.Params[key] = value
	e.details = details
	return e
}

// ValidationReason returns the reason recorded on a validation error, or "".
func ValidationReason(err error) string {
	typed := As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(ValidationDetails)
	if !ok {
		return ""
	}
	return details.Reason
}

// NewConcurrency builds a retryable concurrency error.
func NewConcurrency(message string) *Error {
	return New(CodeConcurrency, message)
}

// NewBusinessProcess builds a non-retryable workflow misuse error.
func NewBusinessProcess(message string) *Error {
	return New(CodeStateConflict, message)
}
