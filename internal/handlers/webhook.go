package handlers

import (
	"io"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/metrics"
	"github.com/adpulse/adsync/pkg/webhook"
)

// maxWebhookBody caps the accepted notification payload size
const maxWebhookBody = 1 << 20

// WebhookHandler receives change notifications from the Graph API
type WebhookHandler struct {
	verifier *webhook.Verifier
	cache    *cache.Cache
	logger   ectologger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(verifier *webhook.Verifier, c *cache.Cache, logger ectologger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		cache:    c,
		logger:   logger,
	}
}

// RegisterRoutes registers the webhook routes
func (h *WebhookHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/webhooks/meta", h.Subscribe)
	g.POST("/webhooks/meta", h.Receive)
}

// Subscribe handles GET /webhooks/meta, the subscription handshake. Meta
// expects the raw challenge echoed back on success.
func (h *WebhookHandler) Subscribe(c echo.Context) error {
	challenge, err := h.verifier.VerifyChallenge(
		c.QueryParam("hub.mode"),
		c.QueryParam("hub.verify_token"),
		c.QueryParam("hub.challenge"),
	)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("handshake_rejected").Inc()
		h.logger.WithContext(c.Request().Context()).WithError(err).Warn("Webhook handshake rejected")
		return Forbidden("verification failed")
	}

	metrics.WebhookEventsTotal.WithLabelValues("handshake_ok").Inc()
	return c.String(http.StatusOK, challenge)
}

// Receive handles POST /webhooks/meta
func (h *WebhookHandler) Receive(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return BadRequest("unreadable body")
	}

	if err := h.verifier.VerifySignature(body, c.Request().Header.Get(webhook.SignatureHeader)); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("rejected").Inc()
		h.logger.WithContext(ctx).WithError(err).Warn("Webhook signature rejected")
		return Forbidden("invalid signature")
	}

	notification, err := webhook.ParseNotification(body)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		return BadRequest("malformed payload")
	}

	// Entries name changed ad accounts; cached reads for them are stale now.
	for _, entry := range notification.Entry {
		h.cache.InvalidateAccount(ctx, entry.ID)
	}

	metrics.WebhookEventsTotal.WithLabelValues("accepted").Inc()
	h.logger.WithContext(ctx).WithFields(map[string]any{
		"object":  notification.Object,
		"entries": len(notification.Entry),
	}).Info("Webhook notification accepted")

	return c.String(http.StatusOK, "EVENT_RECEIVED")
}
