package ui

import (
	"context"
	stderrors "errors"
	"net/http"

	"milkportal/domain/core"
	"milkportal/internal/errors"

	"github.com/gin-gonic/gin"
)

// httpStatusFor maps an error to the status code the API answers with
func httpStatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case stderrors.Is(err, core.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeForbidden:
		return http.StatusForbidden
	case errors.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.CodeInvalidInput, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeExternalService, errors.CodeStorageError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCodeFor returns the code reported alongside the message
func errorCodeFor(err error) string {
	if core.IsNotFoundError(err) {
		return errors.CodeNotFound
	}
	if errors.IsAppError(err) {
		return errors.GetCode(err)
	}
	return errors.CodeInternalError
}

// respondError writes err as JSON. Server-side failures are logged and their
// details kept out of the response.
func (s *Server) respondError(c *gin.Context, op string, err error) {
	status := httpStatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("[%s] %v", op, err)
		message = "internal server error"
	} else {
		s.logger.Debug("[%s] %v", op, err)
	}
	c.JSON(status, gin.H{"error": message, "code": errorCodeFor(err)})
}
