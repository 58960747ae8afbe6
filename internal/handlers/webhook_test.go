package handlers_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adpulse/adsync/internal/handlers"
	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/webhook"
)

const (
	testAppSecret   = "shhh-app-secret"
	testVerifyToken = "verify-me"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newWebhookHandler() (*handlers.WebhookHandler, *cache.Cache) {
	logger := getTestLogger()
	c := cache.New(nil, logger)
	verifier := webhook.NewVerifier(testAppSecret, testVerifyToken)
	return handlers.NewWebhookHandler(verifier, c, logger), c
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testAppSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	require.True(t, httperror.IsHTTPError(err))
	return httperror.GetStatusCode(err)
}

func TestWebhook_SubscribeEchoesChallenge(t *testing.T) {
	h, _ := newWebhookHandler()

	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", testVerifyToken)
	q.Set("hub.challenge", "1158201444")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/meta?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	err := h.Subscribe(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1158201444", rec.Body.String())
}

func TestWebhook_SubscribeRejectsBadToken(t *testing.T) {
	h, _ := newWebhookHandler()

	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", "guess")
	q.Set("hub.challenge", "1158201444")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/meta?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	err := h.Subscribe(e.NewContext(req, rec))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestWebhook_ReceiveAcceptsSignedPayload(t *testing.T) {
	h, c := newWebhookHandler()
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	// Seed a cached entry for the notified account; it must be gone after.
	key := cache.AccountKey("act_123")
	c.SetJSON(ctx, key, map[string]string{"name": "stale"}, cache.AccountTTL)

	body := `{"object":"ad_account","entry":[{"id":"act_123","time":1700000000,"changes":[{"field":"campaigns"}]}]}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, sign(body))
	rec := httptest.NewRecorder()

	err := h.Receive(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EVENT_RECEIVED", rec.Body.String())

	var out map[string]string
	assert.False(t, c.GetJSON(ctx, key, &out), "cached account should be invalidated")
}

func TestWebhook_ReceiveRejectsBadSignature(t *testing.T) {
	h, _ := newWebhookHandler()

	body := `{"object":"ad_account","entry":[]}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, sign(body+"tampered"))
	rec := httptest.NewRecorder()

	err := h.Receive(e.NewContext(req, rec))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestWebhook_ReceiveRejectsMalformedPayload(t *testing.T) {
	h, _ := newWebhookHandler()

	body := `{"object":`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, sign(body))
	rec := httptest.NewRecorder()

	err := h.Receive(e.NewContext(req, rec))
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}
