package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindValidation    Kind = "validation"
	KindResource      Kind = "resource"
	KindExecution     Kind = "execution"
	KindTimeout       Kind = "timeout"
	KindIntegrity     Kind = "integrity"
	KindInternal      Kind = "internal"
)

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeInsufficientCredits ErrorCode = "INSUFFICIENT_CREDITS"

	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidGraph      ErrorCode = "INVALID_GRAPH"
	ErrCodeUnknownNodeType   ErrorCode = "UNKNOWN_NODE_TYPE"
	ErrCodeNodeTypeInactive  ErrorCode = "NODE_TYPE_INACTIVE"
	ErrCodeNodeConfigInvalid ErrorCode = "NODE_CONFIG_INVALID"

	// ErrCodeCycleDetected, ErrCodeDanglingReference and ErrCodeNoStartNode
	// are graph shapes no valid ordering exists for.
	ErrCodeCycleDetected     ErrorCode = "CYCLE_DETECTED"
	ErrCodeDanglingReference ErrorCode = "DANGLING_REFERENCE"
	ErrCodeNoStartNode       ErrorCode = "NO_START_NODE"

	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeInvalidToken         ErrorCode = "INVALID_TOKEN"
	ErrCodeWorkflowNotPublished ErrorCode = "WORKFLOW_NOT_PUBLISHED"

	// ErrCodeNodeExecutionFailed means a node returned an error; the run
	// itself was well formed.
	ErrCodeNodeExecutionFailed ErrorCode = "NODE_EXECUTION_FAILED"
	ErrCodeExecutionTimeout    ErrorCode = "EXECUTION_TIMEOUT"
	ErrCodeExecutionCancelled  ErrorCode = "EXECUTION_CANCELLED"

	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// codeSpec is what every error carrying a code has in common.
type codeSpec struct {
	status    int
	retryable bool
	kind      Kind
}

var codeSpecs = map[ErrorCode]codeSpec{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true, KindInternal},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true, KindTimeout},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true, KindResource},

	ErrCodeNotFound:            {http.StatusNotFound, false, KindResource},
	ErrCodeConflict:            {http.StatusConflict, false, KindResource},
	ErrCodeInsufficientCredits: {http.StatusPaymentRequired, false, KindResource},

	ErrCodeInvalidInput:      {http.StatusBadRequest, false, KindValidation},
	ErrCodeInvalidGraph:      {http.StatusBadRequest, false, KindValidation},
	ErrCodeUnknownNodeType:   {http.StatusBadRequest, false, KindValidation},
	ErrCodeNodeTypeInactive:  {http.StatusBadRequest, false, KindValidation},
	ErrCodeNodeConfigInvalid: {http.StatusBadRequest, false, KindValidation},

	ErrCodeCycleDetected:     {http.StatusBadRequest, false, KindIntegrity},
	ErrCodeDanglingReference: {http.StatusBadRequest, false, KindIntegrity},
	ErrCodeNoStartNode:       {http.StatusBadRequest, false, KindIntegrity},

	ErrCodeUnauthorized:         {http.StatusUnauthorized, false, KindAuthorization},
	ErrCodeForbidden:            {http.StatusForbidden, false, KindAuthorization},
	ErrCodeInvalidToken:         {http.StatusUnauthorized, false, KindAuthorization},
	ErrCodeWorkflowNotPublished: {http.StatusForbidden, false, KindAuthorization},

	ErrCodeNodeExecutionFailed: {http.StatusUnprocessableEntity, false, KindExecution},
	ErrCodeExecutionTimeout:    {http.StatusGatewayTimeout, false, KindTimeout},
	ErrCodeExecutionCancelled:  {http.StatusConflict, false, KindExecution},

	ErrCodeInternal:        {http.StatusInternalServerError, false, KindInternal},
	ErrCodeDatabaseError:   {http.StatusInternalServerError, true, KindInternal},
	ErrCodeExternalService: {http.StatusBadGateway, true, KindInternal},
}

// specOf returns the registered spec for code. Unknown codes are internal
// server errors.
func specOf(code ErrorCode) codeSpec {
	if s, ok := codeSpecs[code]; ok {
		return s
	}
	return codeSpec{http.StatusInternalServerError, false, KindInternal}
}

// KindOf returns the category of err. Errors that are not AppErrors, or carry
// an unmapped code, are internal.
func KindOf(err error) Kind {
	appErr, ok := AsAppError(err)
	if !ok {
		return KindInternal
	}
	return specOf(appErr.Code).kind
}
