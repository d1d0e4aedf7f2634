package server

import (
	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Error     ErrorInfo `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Error: ErrorInfo{
			Code:    code,
			Message: message,
		},
		RequestID: c.GetString(requestIDKey),
	})
}
