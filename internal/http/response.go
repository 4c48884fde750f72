package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"videotube/internal/apperrors"
)

const msgUnexpected = "Something went wrong"

// APIResponse is the envelope of every successful response.
// StatusCode always equals the status line.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// APIError is the envelope of every failed response.
type APIError struct {
	StatusCode int      `json:"statusCode"`
	Code       string   `json:"code"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func writeSuccess(c *gin.Context, status int, data any, message string) {
	c.JSON(status, APIResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// statusClientClosedRequest is logged and set when the caller went away
// before the workflow finished. Nothing reads the body.
const statusClientClosedRequest = 499

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) {
		loggerFrom(c, h.logger).WithError(err).Info("client closed request")
		c.AbortWithStatus(statusClientClosedRequest)
		return
	}

	kind := apperrors.KindOf(err)
	status := kind.StatusCode()

	message := msgUnexpected
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}

	entry := loggerFrom(c, h.logger).WithFields(logrus.Fields{
		"status": status,
		"kind":   kind.String(),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	c.AbortWithStatusJSON(status, APIError{
		StatusCode: status,
		Code:       kind.String(),
		Message:    message,
		Success:    false,
		Errors:     []string{},
	})
}
