package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"tgforge/internal/logger"
)

// requestLogger writes one access line per request.
func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()

			log.Debug("request completed",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"size", res.Size,
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return nil
		}
	}
}
