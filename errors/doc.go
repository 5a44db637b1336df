// Package errors provides unified error handling for the workflow engine.
// It implements structured error types with error codes, HTTP status mapping,
// retryable detection and a coarse error taxonomy (authorization, validation,
// resource, execution, timeout, integrity) used by callers to branch on
// failures without string matching.
package errors
