package httpapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/permsync/internal/logger"
	"github.com/custodia-labs/permsync/internal/metrics"
)

// requestLogger handles errors inline so the final status is known, then
// logs the request and counts it by route template.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(res.Status)).Inc()
			logger.L().Debugw("request",
				"method", req.Method,
				"uri", req.RequestURI,
				"route", route,
				"status", res.Status,
				"remote_ip", c.RealIP(),
				"response_time", time.Since(start),
				"response_size", res.Size,
			)
			return nil
		}
	}
}
