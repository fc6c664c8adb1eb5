package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/internal/app/service/webhook"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
)

// maxWebhookBody bounds a provider delivery.
const maxWebhookBody = 1 << 20

type WebhookIngester interface {
	Ingest(ctx context.Context, channel webhook.Channel, payload []byte, signature string) (*webhook.Result, error)
}

// WebhookAck is the body of every accepted delivery.
type WebhookAck struct {
	Received bool `json:"received"`
}

// @Summary      Provider webhook
// @Description  Receives signed provider events. Verified deliveries are always acknowledged, including ones that fail to apply.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        channel path string true "billing or connect"
// @Param        Stripe-Signature header string true "Provider signature"
// @Success      200  {object}  handlers.WebhookAck
// @Failure      400  {object}  handlers.RespOK
// @Failure      503  {object}  handlers.RespOK
// @Router       /api/v1/webhooks/{channel} [post]
func ApiWebhook(svc WebhookIngester, channel webhook.Channel, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log).With("channel", channel)

		// signature covers the bytes exactly as sent
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				lg.Warnw("webhook_body_too_large", "limit", tooLarge.Limit)
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
				return
			}
			lg.Warnw("webhook_body_read_failed", "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		res, err := svc.Ingest(c.Request.Context(), channel, body, c.GetHeader(stripeclient.SignatureHeader))
		switch {
		case errors.Is(err, webhook.ErrChannelNotConfigured):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "webhook not configured"})
			return
		case errors.Is(err, apperr.ErrBadRequest):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		case err != nil:
			lg.Errorw("webhook_ingest_failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if res != nil {
			c.Header("X-Webhook-Outcome", string(res.Outcome))
		}
		c.JSON(http.StatusOK, WebhookAck{Received: true})
	}
}

func RegisterWebhookRoutes(r gin.IRouter, svc WebhookIngester, log *zap.SugaredLogger) {
	r.POST("/billing", ApiWebhook(svc, webhook.ChannelBilling, log))
	r.POST("/connect", ApiWebhook(svc, webhook.ChannelConnect, log))
}
