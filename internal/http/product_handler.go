package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/domain"
	"market-backend/internal/service"
)

// ProductHandler expone el catálogo. Lectura pública, escritura solo admin.
type ProductHandler struct {
	logger   *zap.Logger
	products *service.ProductService
}

func NewProductHandler(logger *zap.Logger, products *service.ProductService) *ProductHandler {
	return &ProductHandler{logger: logger, products: products}
}

// List maneja GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err, "list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// Get maneja GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err, "load product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// Create maneja POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Price       *float64 `json:"price" binding:"required"`
		Stock       int      `json:"stock"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "create product")
		return
	}
	product, err := h.products.Create(c.Request.Context(), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// Update maneja PUT /products/:id; los campos omitidos no cambian.
func (h *ProductHandler) Update(c *gin.Context) {
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err, "update product")
		return
	}
	product, err := h.products.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondServiceError(c, h.logger, err, "update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete maneja DELETE /products/:id.
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, h.logger, err, "delete product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}
