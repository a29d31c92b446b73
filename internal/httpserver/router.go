package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/metrics"
	cartsvc "storefront-cart/internal/service/cart"
	productsvc "storefront-cart/internal/service/product"
)

// Pinger is satisfied by slot backends that support readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type productService interface {
	List(ctx context.Context, f productsvc.Filter) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

type cartService interface {
	Add(ctx context.Context, productID string) (cartstore.Result, error)
	Remove(ctx context.Context, id string) (cartstore.Result, error)
	SetQuantity(ctx context.Context, id string, quantity int) (cartstore.Result, error)
	Get(ctx context.Context) cartsvc.View
	Line(ctx context.Context, id string) (domain.CartLine, error)
	Summary(ctx context.Context) cartsvc.Summary
	Checkout(ctx context.Context) error
}

// Deps carries the services the router exposes.
type Deps struct {
	Products productService
	Cart     cartService
	// Events feeds GET /cart/events; the route is omitted when nil.
	Events  *cartstore.Bus
	Pinger  Pinger
	Metrics *metrics.CartMetrics
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler    http.Handler
	CORSOrigins       []string
	HeartbeatInterval time.Duration
}

// buildRouter wires routes for the API. Event streams return once closing
// is closed; a nil channel keeps them open until the client leaves.
func buildRouter(logger zerolog.Logger, deps Deps, closing <-chan struct{}) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger, deps.Metrics), gin.Recovery(), corsMiddleware(deps.CORSOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Pinger))
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	if deps.Products != nil {
		h := &productHandler{svc: deps.Products}
		router.GET("/products", h.list)
		router.GET("/products/:id", h.get)
		router.GET("/categories", h.categories)
	}

	if deps.Cart != nil {
		h := &cartHandler{svc: deps.Cart, metrics: deps.Metrics, logger: logger}
		cart := router.Group("/cart")
		cart.GET("", h.get)
		cart.GET("/summary", h.summary)
		cart.POST("/items", h.add)
		cart.GET("/items/:id", h.line)
		cart.PUT("/items/:id", h.setQuantity)
		cart.DELETE("/items/:id", h.remove)
		cart.POST("/checkout", h.checkout)
		if deps.Events != nil {
			heartbeat := deps.HeartbeatInterval
			if heartbeat <= 0 {
				heartbeat = 15 * time.Second
			}
			cart.GET("/events", eventStream(deps.Events, deps.Cart, heartbeat, closing))
		}
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 || containsWildcard(allowed) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
	}
	return cors.New(cfg)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// requestLogger logs one line per request and feeds the request metrics.
func requestLogger(logger zerolog.Logger, m *metrics.CartMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.ObserveRequest(c.Request.Method, c.FullPath(), status, elapsed)

		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("request.complete")
	}
}
