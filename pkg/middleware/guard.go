package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/adpulse/adsync/pkg/appcontext"
	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/metrics"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/ratelimit"
	"github.com/adpulse/adsync/pkg/repositories"
)

// HeaderCSRFToken is required on mutating browser requests
const HeaderCSRFToken = "X-CSRF-Token"

// GuardConfig tunes the inbound request guard
type GuardConfig struct {
	// BlockedIPs are denied outright
	BlockedIPs []string

	// BlockedUserAgents are case-insensitive substrings of denied agents
	BlockedUserAgents []string

	// AllowedOrigins are the web origins permitted to send mutating
	// requests. Empty disables the origin check.
	AllowedOrigins []string

	// RateLimit / RateWindow bound all requests per client IP
	RateLimit  int
	RateWindow time.Duration

	// MutatingRateLimit bounds POST/PUT/PATCH/DELETE separately; zero
	// reuses RateLimit
	MutatingRateLimit int
}

// Guard screens every inbound request: IP blocklist, user agent sanity,
// origin and CSRF checks on mutating calls, then the rate limit. Rejections
// become security events in the audit log.
type Guard struct {
	limiter *ratelimit.Limiter
	logs    repositories.APILogRepo
	logger  ectologger.Logger
	cfg     GuardConfig

	blockedIPs map[string]bool
	origins    map[string]bool
}

// NewGuard creates the request guard
func NewGuard(limiter *ratelimit.Limiter, logs repositories.APILogRepo, cfg GuardConfig, logger ectologger.Logger) *Guard {
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.MutatingRateLimit <= 0 {
		cfg.MutatingRateLimit = cfg.RateLimit
	}

	blockedIPs := make(map[string]bool, len(cfg.BlockedIPs))
	for _, ip := range cfg.BlockedIPs {
		blockedIPs[strings.TrimSpace(ip)] = true
	}
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		origins[strings.TrimRight(strings.TrimSpace(origin), "/")] = true
	}

	return &Guard{
		limiter:    limiter,
		logs:       logs,
		logger:     logger,
		cfg:        cfg,
		blockedIPs: blockedIPs,
		origins:    origins,
	}
}

// Middleware returns the echo middleware running the full check pipeline
func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if g.blockedIPs[ip] {
				g.recordEvent(c, "blocked_ip", models.SeverityHigh, nil)
				return httperror.NewHTTPError(http.StatusForbidden, "access denied")
			}

			if reason := g.checkUserAgent(c.Request().UserAgent()); reason != "" {
				g.recordEvent(c, reason, models.SeverityMedium, nil)
				return httperror.NewHTTPError(http.StatusBadRequest, "invalid request")
			}

			mutating := isMutating(c.Request().Method)
			if mutating {
				if err := g.checkOrigin(c); err != nil {
					return err
				}
			}

			scope, limit := "api", g.cfg.RateLimit
			if mutating {
				scope, limit = "mutating", g.cfg.MutatingRateLimit
			}

			if limit > 0 {
				result := g.limiter.Allow(c.Request().Context(), scope, ip, limit, g.cfg.RateWindow)
				setRateHeaders(c, result)

				if !result.Allowed {
					metrics.RateLimitRejections.WithLabelValues(scope).Inc()
					g.recordEvent(c, "rate_limited", models.SeverityLow, map[string]any{
						"scope": scope,
						"limit": limit,
					})
					retryAfter := int(result.RetryAfter().Seconds()) + 1
					c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
					return httperror.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
				}
			}

			return next(c)
		}
	}
}

func (g *Guard) checkUserAgent(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return "missing_user_agent"
	}
	lower := strings.ToLower(ua)
	for _, blocked := range g.cfg.BlockedUserAgents {
		if blocked != "" && strings.Contains(lower, strings.ToLower(blocked)) {
			return "blocked_user_agent"
		}
	}
	return ""
}

// checkOrigin enforces the origin allowlist and the CSRF header on mutating
// browser requests. Requests without an Origin header (curl, server to
// server) skip both checks.
func (g *Guard) checkOrigin(c echo.Context) error {
	origin := c.Request().Header.Get("Origin")
	if origin == "" {
		return nil
	}

	if len(g.origins) > 0 && !g.origins[strings.TrimRight(origin, "/")] {
		g.recordEvent(c, "origin_mismatch", models.SeverityHigh, map[string]any{
			"origin": origin,
		})
		return httperror.NewHTTPError(http.StatusForbidden, "origin not allowed")
	}

	if c.Request().Header.Get(HeaderCSRFToken) == "" {
		g.recordEvent(c, "missing_csrf_token", models.SeverityMedium, nil)
		return httperror.NewHTTPError(http.StatusBadRequest, "missing CSRF token")
	}

	return nil
}

// recordEvent appends a security event to the audit log. Logging failures
// never block the rejection itself.
func (g *Guard) recordEvent(c echo.Context, event, severity string, detail map[string]any) {
	ctx := c.Request().Context()

	metrics.SecurityEventsTotal.WithLabelValues(event, severity).Inc()
	g.logger.WithContext(ctx).WithFields(map[string]any{
		"event":     event,
		"severity":  severity,
		"remote_ip": c.RealIP(),
		"path":      c.Request().URL.Path,
	}).Warn("Security event")

	if g.logs == nil {
		return
	}

	if detail == nil {
		detail = map[string]any{}
	}
	detail["event"] = event

	row := &models.APILog{
		RequestID: appcontext.GetRequestID(ctx),
		EventType: models.APILogEventSecurity,
		Method:    c.Request().Method,
		Path:      c.Request().URL.Path,
		CallerIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Severity:  &severity,
		Detail:    database.NewJSONB(detail),
	}
	if err := g.logs.Insert(ctx, row); err != nil {
		g.logger.WithContext(ctx).WithError(err).Warn("failed to record security event")
	}
}

func setRateHeaders(c echo.Context, result ratelimit.Result) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
