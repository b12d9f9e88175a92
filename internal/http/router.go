package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/metrics"
	"market-backend/internal/service"
)

// Handlers agrupa los handlers que monta NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Chat      *ChatHandler
	Product   *ProductHandler
	Cart      *CartHandler
	Invoice   *InvoiceHandler
	Dashboard *DashboardHandler
}

// NewRouter configura el router de Gin con middlewares y rutas. ping puede
// ser nil; en ese caso /health no consulta la base.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	h Handlers,
	corsOrigins []string,
	ping func(context.Context) error,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware(), corsMiddleware(corsOrigins))

	r.GET("/health", func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireAuth := JWTAuthMiddleware(jwtSvc)
	adminOnly := RequireAdmin()

	auth := r.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/login/admin", h.Auth.LoginAdmin)
	auth.POST("/login/user", h.Auth.LoginUser)
	auth.POST("/reset-password/request", h.Auth.RequestPasswordReset)
	auth.POST("/reset-password", h.Auth.ResetPassword)
	auth.POST("/change-password", requireAuth, h.Auth.ChangePassword)

	users := r.Group("/users", requireAuth)
	users.GET("/me", h.User.Me)
	users.GET("", adminOnly, h.User.List)
	users.GET("/stats/total", adminOnly, h.Dashboard.UserStats)
	users.GET("/:id", h.User.Get)

	products := r.Group("/products")
	products.GET("", h.Product.List)
	products.GET("/:id", h.Product.Get)
	products.POST("", requireAuth, adminOnly, h.Product.Create)
	products.PUT("/:id", requireAuth, adminOnly, h.Product.Update)
	products.DELETE("/:id", requireAuth, adminOnly, h.Product.Delete)

	cart := r.Group("/cart", requireAuth)
	cart.GET("", h.Cart.Get)
	cart.POST("/add", h.Cart.Add)
	cart.POST("/remove", h.Cart.Remove)
	cart.GET("/total", h.Cart.Total)
	cart.DELETE("/clear", h.Cart.Clear)

	invoicing := r.Group("/invoicing", requireAuth)
	invoicing.POST("/create", h.Invoice.Create)
	invoicing.GET("/me", h.Invoice.Mine)
	invoicing.GET("/admin/all", adminOnly, h.Invoice.All)
	invoicing.GET("/:id", h.Invoice.Get)
	invoicing.PATCH("/:id/status", adminOnly, h.Invoice.UpdateStatus)

	r.GET("/dashboard/stats", requireAuth, adminOnly, h.Dashboard.Stats)

	chat := r.Group("/chat")
	chat.GET("/messages", h.Chat.History)
	chat.POST("/messages", requireAuth, h.Chat.PostMessage)

	r.GET("/ws/chat", h.Chat.ServeWS)

	return r
}
