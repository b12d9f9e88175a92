package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/service"
)

// CartHandler opera sobre el carrito del usuario autenticado.
type CartHandler struct {
	logger *zap.Logger
	cart   *service.CartService
}

func NewCartHandler(logger *zap.Logger, cart *service.CartService) *CartHandler {
	return &CartHandler{logger: logger, cart: cart}
}

// Get maneja GET /cart.
func (h *CartHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	cart, err := h.cart.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err, "load cart")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// Add maneja POST /cart/add; quantity omitida vale 1.
func (h *CartHandler) Add(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  *int   `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "add to cart")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	cart, err := h.cart.Add(c.Request.Context(), claims.UserID, req.ProductID, quantity)
	if err != nil {
		respondServiceError(c, h.logger, err, "add to cart")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// Remove maneja POST /cart/remove?product_id=.
func (h *CartHandler) Remove(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	productID := c.Query("product_id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	cart, err := h.cart.Remove(c.Request.Context(), claims.UserID, productID)
	if err != nil {
		respondServiceError(c, h.logger, err, "remove from cart")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// Total maneja GET /cart/total.
func (h *CartHandler) Total(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	cart, err := h.cart.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err, "load cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": cart.Total})
}

// Clear maneja DELETE /cart/clear.
func (h *CartHandler) Clear(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.cart.Clear(c.Request.Context(), claims.UserID); err != nil {
		respondServiceError(c, h.logger, err, "clear cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
