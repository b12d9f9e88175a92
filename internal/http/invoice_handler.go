package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/domain"
	"market-backend/internal/service"
)

type InvoiceHandler struct {
	logger   *zap.Logger
	invoices *service.InvoiceService
}

func NewInvoiceHandler(logger *zap.Logger, invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{logger: logger, invoices: invoices}
}

// Create maneja POST /invoicing/create.
func (h *InvoiceHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.CreateFromCart(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err, "create invoice")
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// Mine maneja GET /invoicing/me.
func (h *InvoiceHandler) Mine(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	invoices, err := h.invoices.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err, "list invoices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// All maneja GET /invoicing/admin/all (solo admin).
func (h *InvoiceHandler) All(c *gin.Context) {
	invoices, err := h.invoices.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err, "list invoices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// Get maneja GET /invoicing/:id; solo el dueño o un admin.
func (h *InvoiceHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"), service.Viewer{
		UserID:  claims.UserID,
		IsAdmin: claims.IsAdmin,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "load invoice")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// UpdateStatus maneja PATCH /invoicing/:id/status (solo admin).
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "update invoice status")
		return
	}
	invoice, err := h.invoices.UpdateStatus(c.Request.Context(), c.Param("id"), domain.InvoiceStatus(req.Status))
	if err != nil {
		respondServiceError(c, h.logger, err, "update invoice status")
		return
	}
	c.JSON(http.StatusOK, invoice)
}
