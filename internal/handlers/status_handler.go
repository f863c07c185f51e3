package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alialfonick-commits/loru/internal/metrics"
	"github.com/alialfonick-commits/loru/internal/orders"
	"github.com/alialfonick-commits/loru/internal/reconcile"
)

// RegisterStatusWebhook registers the fulfillment partner's status-callback
// route. Signature verification runs over the raw body before any parsing.
func RegisterStatusWebhook(r *gin.Engine, cfg HandlerConfig) {
	store := orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable)
	rec := reconcile.NewReconciler(store)
	emitter := metrics.NewEmitter(cfg.CloudWatchClient, cfg.MetricsNamespace)

	if cfg.WebhookSecret == "" {
		log.Printf("[reconcile] WARNING: no webhook secret configured, callback signatures will not be verified")
	}

	r.POST("/webhooks/fulfillment", func(c *gin.Context) {
		ctx := c.Request.Context()

		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
			return
		}

		sig := c.GetHeader("X-Signature")
		if sig == "" {
			sig = c.GetHeader("X-Hub-Signature")
		}
		if !reconcile.VerifySignature(raw, sig, cfg.WebhookSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
			return
		}

		cb, err := reconcile.ParseCallback(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON"})
			return
		}

		matched, err := rec.Apply(ctx, cb)
		if err != nil {
			log.Printf("[reconcile] apply failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}

		// 200 either way: the partner must not retry an event that can
		// never match
		if matched == "" {
			emitter.Count(ctx, metrics.CallbacksUnmatched, 1)
			c.JSON(http.StatusOK, gin.H{"ok": true, "note": "no matching order"})
			return
		}
		emitter.Count(ctx, metrics.CallbacksMatched, 1)
		log.Printf("[reconcile] applied status %q to order=%s", cb.Status, matched)
		c.JSON(http.StatusOK, gin.H{"ok": true, "order_id": matched})
	})
}
