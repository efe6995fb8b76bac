package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Almishev/pos-shop/pkg/errors"
	"github.com/Almishev/pos-shop/pkg/logging"
)

// ErrorResponse is the JSON error body returned to clients
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// RespondWithError maps an error to the standard JSON error response.
// Unknown errors become opaque 500s so internals never leak to clients.
func RespondWithError(c *gin.Context, logger *logging.Logger, err error) {
	requestID := c.GetString("requestId")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.WithContext(c.Request.Context()).Error("Unhandled error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:      string(apperrors.CodeInternal),
			Message:   "internal server error",
			RequestID: requestID,
		})
		return
	}

	if appErr.HTTPStatus >= 500 {
		logger.WithContext(c.Request.Context()).Error("Request failed",
			"code", string(appErr.Code),
			"error", appErr.Error(),
			"path", c.Request.URL.Path,
		)
	}

	c.JSON(appErr.HTTPStatus, ErrorResponse{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID,
	})
}
