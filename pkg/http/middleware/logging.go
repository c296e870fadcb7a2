package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "FutPull/pkg/logger"
)

// RequestLogging logs every request at debug and client errors at info.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)),
			}
			if s := c.Response().Status; s >= 400 && s < 500 {
				l.Info("http request", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return err
		}
	}
}
