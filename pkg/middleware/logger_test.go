package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/adpulse/adsync/pkg/middleware"
)

func observedLogger() (ectologger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zapadapter.NewZapEctoLogger(zap.New(core), nil), logs
}

func runLogged(t *testing.T, logger ectologger.Logger, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, middleware.Logger(logger)(handler)(c))
	return rec
}

func TestLogger_RecordsRateLimitBudget(t *testing.T) {
	logger, logs := observedLogger()

	runLogged(t, logger, func(c echo.Context) error {
		c.Response().Header().Set("X-RateLimit-Remaining", "7")
		return c.String(http.StatusOK, "ok")
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "7", fields["ratelimit_remaining"])
	assert.Contains(t, fields, "latency_ms")
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestLogger_OmitsBudgetOnUnguardedRoutes(t *testing.T) {
	logger, logs := observedLogger()

	runLogged(t, logger, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "ratelimit_remaining")
}

func TestLogger_ServerErrorLogsAtErrorLevel(t *testing.T) {
	logger, logs := observedLogger()

	runLogged(t, logger, func(c echo.Context) error {
		return httperror.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}
