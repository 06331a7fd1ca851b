package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// CORSMiddleware allows any local origin to call the API. Preflight requests
// are answered directly with 204.
func CORSMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, echo.HeaderContentType)
			if c.Request().Method == http.MethodOptions {
				h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

// errorHandler renders every error that escapes a handler as a JSON body.
// Unknown routes and unsupported methods both answer 404.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		message := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			message = fmt.Sprint(he.Message)
		}
		switch status {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			status = http.StatusNotFound
			message = "not found"
		case http.StatusRequestEntityTooLarge:
			message = "request body too large"
		}
		if status >= http.StatusInternalServerError {
			logger.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled error")
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, errorResponse{Error: message})
		}
		if werr != nil {
			logger.WithError(werr).Warn("write error response")
		}
	}
}
