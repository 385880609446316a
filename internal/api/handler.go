package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/session"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SessionCookie carries the browser session id
const SessionCookie = "sf_session"

const sessionKey = "session"

// Options tune the HTTP layer
type Options struct {
	Pricing       checkout.Pricing
	SecureCookies bool
	SessionMaxAge time.Duration
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	sessions *session.Registry
	opts     Options
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(sessions *session.Registry, opts Options) *Handler {
	if opts.SessionMaxAge <= 0 {
		opts.SessionMaxAge = 30 * time.Minute
	}
	return &Handler{
		sessions: sessions,
		opts:     opts,
		logger:   util.Component("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", h.sessionMiddleware())
	{
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/logout", h.logout)
		v1.GET("/me", h.me)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.POST("/products", h.createProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.POST("/products/:id/image", h.uploadProductImage)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.PUT("/cart/items/:id", h.updateCartItem)
		v1.DELETE("/cart/items/:id", h.removeCartItem)
		v1.POST("/cart/checkout", h.beginCheckout)

		v1.GET("/checkout", h.openCheckout)
		v1.POST("/checkout", h.placeOrder)
		v1.DELETE("/checkout", h.discardCheckout)

		v1.GET("/addresses", h.listAddresses)
		v1.POST("/addresses", h.createAddress)

		v1.GET("/orders", h.listOrders)

		v1.GET("/admin/users", h.listUsers)
		v1.POST("/admin/users/:id/approve", h.approveUser)
		v1.POST("/admin/users/:id/reject", h.rejectUser)
		v1.GET("/admin/sellers", h.listSellers)
		v1.PATCH("/admin/sellers/:id", h.setSellerActive)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.opts.Ready != nil {
		if err := h.opts.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
				"time":   time.Now().Unix(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"sessions": h.sessions.Len(),
		"time":     time.Now().Unix(),
	})
}

// sessionMiddleware resolves the browser session from its cookie, issuing a
// new one when missing or expired, and loads identity and cart on first use.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		s, created, err := h.sessions.Resolve(id)
		if err != nil {
			respondError(c, err, "Failed to start session")
			c.Abort()
			return
		}
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, s.ID, int(h.opts.SessionMaxAge.Seconds()), "/", "", h.opts.SecureCookies, true)
		}

		if err := s.Bootstrap(c.Request.Context()); err != nil {
			h.logger.Warn("Session bootstrap failed",
				zap.String("session_id", s.ID),
				zap.Error(err))
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
