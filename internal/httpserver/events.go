package httpserver

import (
	"time"

	"github.com/gin-gonic/gin"

	"storefront-cart/internal/cartstore"
)

// eventStream sends the current cart as a "snapshot" event, then one "cart"
// event per update until the client goes away or closing is closed.
func eventStream(bus *cartstore.Bus, svc cartService, heartbeat time.Duration, closing <-chan struct{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, cancel := bus.Listen()
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ctx := c.Request.Context()
		c.SSEvent("snapshot", svc.Get(ctx))
		c.Writer.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-closing:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.SSEvent("cart", ev)
				c.Writer.Flush()
			case <-ticker.C:
				c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
				c.Writer.Flush()
			}
		}
	}
}
