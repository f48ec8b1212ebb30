package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, kind := classify(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		logger.Error("httpapi: %s %s: %v", c.Request().Method, c.Path(), err)
		message = http.StatusText(code)
	}

	var he *echo.HTTPError
	if code < http.StatusInternalServerError && errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: kind, Message: message})
}

// classify maps an error to a status code and a stable error kind.
func classify(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		switch {
		case he.Code == http.StatusNotFound:
			return he.Code, "not_found"
		case he.Code < http.StatusInternalServerError:
			return he.Code, "invalid_request"
		default:
			return he.Code, "internal_error"
		}
	case errors.Is(err, domain.ErrInvalidPermission):
		return http.StatusBadRequest, "invalid_permission"
	case errors.Is(err, domain.ErrOAuthTargetMismatch):
		return http.StatusBadRequest, "oauth_target_mismatch"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrConnectorNotFound):
		return http.StatusNotFound, "connector_not_found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
