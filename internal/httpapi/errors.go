package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/internal/logger"
	"github.com/bigwednesday/customer-api/store"
)

const (
	msgCustomerRejected     = "Email address already in use or invalid password."
	msgAuthenticationFailed = "Invalid email address or password."
)

// errorResponse is the body of every error response.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// statusOf maps an error to a status code and client message.
func statusOf(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, msg
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, validationMessage(validationErrs)
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		switch storeErr.Kind {
		case store.KindEntityNotFound:
			return http.StatusNotFound, storeErr.Message
		case store.KindCustomerExists, store.KindInvalidPassword:
			return http.StatusBadRequest, msgCustomerRejected
		case store.KindAuthenticationFailed:
			return http.StatusBadRequest, msgAuthenticationFailed
		}
	}

	return http.StatusInternalServerError, "An internal server error occurred"
}

// handleError is the echo.HTTPErrorHandler of the API.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("request failed", zap.Error(err))
	}

	body := errorResponse{StatusCode: status, Error: http.StatusText(status), Message: msg}
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		s.logger.Error("unable to write error response", zap.Error(writeErr))
	}
}
