package database

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/flowengine/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"connection closed",
	"driver: bad connection",
	"database is closed",
}

var transientPatterns = []string{
	"deadlock",
	"lock timeout",
	"database is locked",
	"too many connections",
	"could not serialize access",
}

func containsAny(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether err means the database is unreachable.
func IsConnectionError(err error) bool {
	return containsAny(err, connectionPatterns)
}

// IsRetryableError reports whether retrying the statement may succeed.
func IsRetryableError(err error) bool {
	return IsConnectionError(err) || containsAny(err, transientPatterns)
}

// IsNotFoundError reports a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports a unique-key violation. Drivers that do not
// translate errors are matched by message.
func IsDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return containsAny(err, []string{"unique constraint", "duplicate key"})
}

// FromDatabase converts a database error on resource to an AppError.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsDuplicateError(err):
		return apperrors.Conflict("A " + resource + " with these details already exists.").WithCause(err)
	case IsConnectionError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError, "Database is temporarily unavailable. Please try again.").
			WithStatus(http.StatusServiceUnavailable).
			WithCause(err)
	case IsRetryableError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError, "Database operation failed. Please try again.").
			WithStatus(http.StatusServiceUnavailable).
			WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
