package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	apperrors "github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/logger"
)

// Middleware wraps an http.Handler with additional behavior. Server-wide
// concerns (recovery, request ids, CORS, body limits, access logs) are
// applied as Middleware around the whole handler tree.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first in the list is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// GinWrap adapts a Middleware for use in a Gin handler chain.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
	}
}

// writeError writes an AppError as the standard JSON error body.
func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	body, mErr := json.Marshal(err.ToResponse())
	if mErr != nil {
		http.Error(w, err.Message, err.HTTPStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.HTTPStatus)
	_, _ = w.Write(body)
}

// abortWithError stops a Gin chain with an AppError body.
func abortWithError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ResponseFor(logger.RequestIDFromContext(c.Request.Context())))
}
