package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/finsentiment/internal/sentiment"
	"github.com/spacesedan/finsentiment/internal/worker"
)

var ErrInvalidRequest = errors.New("invalid request")

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapError separates client mistakes from server side failures.
func MapError(err error) ErrorResponse {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_REQUEST",
			Message:    "request body must be a JSON object",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse{
			StatusCode: http.StatusGatewayTimeout,
			Code:       "TIMEOUT",
			Message:    "inference timed out",
		}
	case errors.Is(err, context.Canceled):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "UNAVAILABLE",
			Message:    "request cancelled",
		}
	case errors.Is(err, worker.ErrPoolClosed):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "UNAVAILABLE",
			Message:    "service is shutting down",
		}
	case errors.Is(err, sentiment.ErrInference):
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       "INFERENCE_FAILED",
			Message:    "inference failed",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       "INTERNAL_ERROR",
			Message:    "internal server error",
		}
	}
}

// HandleError sends the JSON error response matching err.
func HandleError(c *gin.Context, err error) {
	errResp := MapError(err)
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}
