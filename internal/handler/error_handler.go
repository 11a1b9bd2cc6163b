package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-service/internal/apperr"
)

// NewHTTPErrorHandler returns the single place errors become HTTP responses.
// Operational failures (validation, conflict, unauthorized, forbidden, not
// found) surface their message with a stable status code. Storage and
// unexpected failures are logged in full with the request context and
// converted to a generic client-safe message; in prod the internal message is
// suppressed entirely.
func NewHTTPErrorHandler(log *zap.Logger, env string) echo.HTTPErrorHandler {
	prod := env == "prod" || env == "production"

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)

		status := http.StatusInternalServerError
		message := "internal server error"
		var fields map[string]string

		var he *echo.HTTPError
		var ae *apperr.Error
		switch {
		case errors.As(err, &he):
			// Echo's own errors (404 route miss, 405, body too large, ...).
			status = he.Code
			message = fmt.Sprint(he.Message)
		case errors.As(err, &ae):
			status = statusForKind(apperr.KindOf(ae))
			message = ae.Message()
			fields = apperr.Fields(ae)
		}

		logFields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", requestID),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", logFields...)
			if prod {
				message = "internal server error"
			}
		} else {
			log.Warn("request rejected", logFields...)
		}

		body := echo.Map{
			"status":     statusLabel(status),
			"message":    message,
			"request_id": requestID,
		}
		if len(fields) > 0 {
			body["errors"] = fields
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			log.Error("write error response", zap.Error(writeErr))
		}
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized, apperr.KindRefreshExpired:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusLabel follows the fail/error convention: client mistakes are "fail",
// server faults are "error".
func statusLabel(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}
