package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONErrorHandler turns every unhandled error, echo's own included, into the
// ErrorResponse shape the handlers emit, so clients parse one format.
func JSONErrorHandler(devMode bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			resp := ErrorResponse{Error: msg, Code: he.Code}
			if devMode && he.Internal != nil {
				resp.Details = he.Internal.Error()
			}
			_ = c.JSON(he.Code, resp)
			return
		}

		resp := ErrorResponse{Error: "internal server error", Code: http.StatusInternalServerError}
		if devMode {
			resp.Details = err.Error()
		}
		_ = c.JSON(http.StatusInternalServerError, resp)
	}
}
