package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adpulse/adsync/pkg/appcontext"
)

// Logger emits one structured line per request after the handler chain runs.
// Server errors log at error level so they surface without a status filter.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			latency := time.Since(start)

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
				if id == "" {
					id = uuid.New().String()
				}
			}

			ctx := req.Context()
			fields := map[string]interface{}{
				"request_id":    id,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"status":        res.Status,
				"route":         c.Path(),
				"remote_ip":     c.RealIP(),
				"user_agent":    req.UserAgent(),
				"latency_ms":    latency.Milliseconds(),
				"response_size": res.Size,
			}
			if userID := appcontext.GetUserID(ctx); userID != "" {
				fields["user_id"] = userID
			}
			// Guard-processed requests carry their remaining budget; absent
			// on unguarded routes like health and webhooks
			if remaining := res.Header().Get("X-RateLimit-Remaining"); remaining != "" {
				fields["ratelimit_remaining"] = remaining
			}

			entry := logger.WithContext(ctx).WithFields(fields)
			switch {
			case res.Status >= 500:
				entry.Error("Request")
			case res.Status >= 400:
				entry.Warn("Request")
			default:
				entry.Info("Request")
			}

			return nil
		}
	}
}
