package middleware

import (
	"strconv"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/metrics"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// LoggerMiddleware tags each request with a ULID and logs its outcome.
func LoggerMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(HeaderRequestID)
		if requestID == "" {
			requestID = ulid.Make().String()
		}
		c.Set(HeaderRequestID, requestID)
		c.Locals("request_id", requestID)

		err := c.Next()
		if err != nil {
			// Let the error handler write the response so the status below is final.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		latency := time.Since(start)
		status := c.Response().StatusCode()
		metrics.RequestDuration.WithLabelValues(c.Method(), strconv.Itoa(status)).Observe(latency.Seconds())

		logger.WithRequestID(log, requestID).Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		)

		return nil
	}
}
