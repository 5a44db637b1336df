package auth

import (
	"context"
	"errors"

	"github.com/kbukum/flowengine/logger"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// TokenValidator validates a token string and returns the caller it names.
// Middleware depends on this interface rather than on a signing scheme.
type TokenValidator interface {
	ValidateToken(token string) (*Identity, error)
}

// TokenValidatorFunc adapts an ordinary function to TokenValidator.
type TokenValidatorFunc func(token string) (*Identity, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(token string) (*Identity, error) {
	return f(token)
}

// ErrNoIdentity is returned when a request context carries no Identity.
var ErrNoIdentity = errors.New("auth: no identity in context")

type contextKey struct{}

var identityKey = contextKey{}

// WithIdentity stores id in ctx. The user id is also attached for logging.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	return logger.ContextWithUserID(ctx, id.UserID)
}

// IdentityFrom returns the Identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// MustIdentity returns the Identity or ErrNoIdentity.
func MustIdentity(ctx context.Context) (*Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return nil, ErrNoIdentity
	}
	return id, nil
}
