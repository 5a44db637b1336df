package errors

import stderrors "errors"

// ErrorResponse is the body written for a failed API call. RequestID lets a
// client quote the id that appears in the server's logs.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

type ErrorBody struct {
	Code ErrorCode `json:"code"`
	// Kind is the coarse category for clients that do not switch on Code.
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse builds the body for e. The cause stays server-side.
func (e *AppError) ToResponse() ErrorResponse {
	body := ErrorBody{
		Code:      e.Code,
		Kind:      specOf(e.Code).kind,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
	return ErrorResponse{Error: body}
}

// ResponseFor is ToResponse stamped with the request's correlation id.
func (e *AppError) ResponseFor(requestID string) ErrorResponse {
	r := e.ToResponse()
	r.RequestID = requestID
	return r
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError returns the outermost *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}
