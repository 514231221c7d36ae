package apperror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler renders errors as {"error": {"code", "message"}}.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := ToHTTPError(err)

		var he *echo.HTTPError
		var appErr *Error
		if !errors.As(err, &appErr) && errors.As(err, &he) {
			code = he.Code
			errorObj := body["error"].(map[string]any)
			errorObj["code"] = codeForStatus(code)
			if msg, ok := he.Message.(string); ok {
				errorObj["message"] = msg
			}
		}

		if code >= 500 {
			log.Error("request error",
				slog.Int("status", code),
				slog.String("path", c.Request().URL.Path),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
		} else {
			_ = c.JSON(code, body)
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound.Code
	case http.StatusBadRequest:
		return ErrBadRequest.Code
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	default:
		return ErrInternal.Code
	}
}
