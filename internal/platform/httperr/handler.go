package httperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler returns an echo.HTTPErrorHandler that renders classified
// errors as `{"message": ..., ...details}` bodies. Unclassified errors
// become 500s with a generic message; the underlying cause is logged,
// never exposed.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := map[string]interface{}{"message": "internal server error"}

		if he := From(err); he != nil {
			status = he.Kind.StatusCode()
			body["message"] = he.Message
			for k, v := range he.Details {
				body[k] = v
			}
			if status >= 500 {
				logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
		} else if ee, ok := err.(*echo.HTTPError); ok {
			status = ee.Code
			if msg, ok := ee.Message.(string); ok {
				body["message"] = msg
			} else {
				body["message"] = http.StatusText(ee.Code)
			}
		} else {
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("writing error response")
		}
	}
}
