package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/logger"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries pagination metadata.
type Meta struct {
	Page       int   `json:"page,omitempty"`
	PageSize   int   `json:"page_size,omitempty"`
	Total      int   `json:"total"`
	TotalPages int   `json:"total_pages,omitempty"`
	Facets     any   `json:"facets,omitempty"`
}

// RespondWithError writes err as a structured error body. AppErrors carry
// their own status; anything else becomes a 500. Server-side failures are
// logged with the request's correlation fields.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("Request failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"code":            string(appErr.Code),
			"path":            c.Request.URL.Path,
		})
	}
	c.JSON(appErr.HTTPStatus, appErr.ResponseFor(logger.RequestIDFromContext(c.Request.Context())))
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondOKWithMeta sends a 200 response with data and metadata.
func RespondOKWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: meta})
}

// RespondCreated sends a 201 response wrapping data.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}
