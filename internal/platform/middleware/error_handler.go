package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler returns an echo HTTPErrorHandler that logs every error with
// full detail and shapes the response body by environment. In production,
// unexpected errors are reduced to a generic message so internal detail
// never reaches callers; echo.HTTPError messages (deliberate 4xx responses)
// pass through unchanged.
func ErrorHandler(logger zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := interface{}("internal server error")

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			message = he.Message
			if he.Internal != nil {
				logger.Error().
					Err(he.Internal).
					Str("request_id", requestID(c)).
					Int("status", code).
					Msg("request error")
			}
		} else {
			logger.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Msg("unhandled error")
			if !production {
				message = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{"error": message})
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
