package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, auth *service.AuthService) *UserHandler {
	return &UserHandler{logger: logger, auth: auth}
}

// Me maneja GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	user, err := h.auth.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err, "load user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// List maneja GET /users (solo admin).
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Get maneja GET /users/:id; un usuario común solo puede verse a sí mismo.
func (h *UserHandler) Get(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	id := c.Param("id")
	if !claims.IsAdmin && claims.UserID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "not enough permissions"})
		return
	}
	user, err := h.auth.GetUser(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err, "load user")
		return
	}
	c.JSON(http.StatusOK, user)
}
