package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowengine/auth"
	apperrors "github.com/kbukum/flowengine/errors"
)

// HeaderUserID names the caller when token checks are disabled.
const HeaderUserID = "X-User-ID"

// AuthConfig configures Authenticate.
type AuthConfig struct {
	// Validator checks bearer tokens. When nil, the caller is taken from the
	// X-User-ID header.
	Validator auth.TokenValidator
	// SkipPaths are path prefixes that bypass authentication.
	SkipPaths []string
}

// Authenticate resolves the caller of each request and stores it on the
// request context (auth.IdentityFrom) and the Gin context ("user_id").
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		id, appErr := resolveIdentity(c, cfg.Validator)
		if appErr != nil {
			abortWithError(c, appErr)
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Set("user_id", id.UserID)
		c.Next()
	}
}

func resolveIdentity(c *gin.Context, validator auth.TokenValidator) (*auth.Identity, *apperrors.AppError) {
	if validator == nil {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			return nil, apperrors.Unauthorized("")
		}
		return &auth.Identity{UserID: userID}, nil
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, apperrors.Unauthorized("Authorization header required.")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, apperrors.Unauthorized("Invalid authorization header format.")
	}
	id, err := validator.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return nil, apperrors.InvalidToken().WithCause(err)
	}
	return id, nil
}
