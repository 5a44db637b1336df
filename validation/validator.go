package validation

import (
	"strings"

	"github.com/kbukum/flowengine/errors"
)

// FieldError is one failing field, named by its json or mapstructure key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// FieldErrors are the failures of one payload in declaration order.
type FieldErrors []FieldError

// Messages renders each failure as "field: message", or nil when there are
// none.
func (fe FieldErrors) Messages() []string {
	if len(fe) == 0 {
		return nil
	}
	out := make([]string, len(fe))
	for i, e := range fe {
		out[i] = e.String()
	}
	return out
}

// AppError folds the failures into one INVALID_INPUT error carrying them
// under the "fields" detail. It returns nil for an empty list.
func (fe FieldErrors) AppError() *errors.AppError {
	if len(fe) == 0 {
		return nil
	}
	return errors.Validation(strings.Join(fe.Messages(), "; ")).WithDetail("fields", fe)
}

// Fields recovers the per-field failures from an error returned by Validate.
func Fields(err error) (FieldErrors, bool) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return nil, false
	}
	fe, ok := appErr.Details["fields"].(FieldErrors)
	return fe, ok
}
