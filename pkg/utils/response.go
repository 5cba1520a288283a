package utils

import (
	"errors"

	"github.com/gin-gonic/gin"

	appErrors "emi-device-manager/pkg/errors"
)

// Response is the envelope returned by every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   message,
	})
}

// RespondError maps a service error onto the envelope. Wrapped error detail
// is only exposed outside release mode.
func RespondError(c *gin.Context, err error) {
	status := appErrors.StatusCode(err)

	message := err.Error()
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Err != nil && gin.Mode() != gin.ReleaseMode {
			message = appErr.Error()
		}
	}

	c.JSON(status, Response{
		Success: false,
		Error:   message,
	})
}
