package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/domain"
	"market-backend/internal/service"
)

// AuthHandler expone registro, login y el ciclo de reset de contraseña.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

type tokenResponse struct {
	service.AccessToken
	User domain.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsAdmin  *bool  `json:"is_admin"`
}

// Register maneja POST /auth/register. Un is_admin en el cuerpo se ignora:
// la cuenta creada nunca es administradora.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "register")
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "register user")
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{AccessToken: token, User: user})
}

// Login maneja POST /auth/login; is_admin opcional fija el rol esperado.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "login")
		return
	}
	h.login(c, req, req.IsAdmin)
}

// LoginAdmin maneja POST /auth/login/admin.
func (h *AuthHandler) LoginAdmin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "admin login")
		return
	}
	admin := true
	h.login(c, req, &admin)
}

// LoginUser maneja POST /auth/login/user.
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "user login")
		return
	}
	admin := false
	h.login(c, req, &admin)
}

func (h *AuthHandler) login(c *gin.Context, req loginRequest, expectAdmin *bool) {
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, expectAdmin)
	if err != nil {
		respondServiceError(c, h.logger, err, "login")
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, User: user})
}

// RequestPasswordReset maneja POST /auth/reset-password/request.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "password reset")
		return
	}

	res, err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		respondServiceError(c, h.logger, err, "request password reset")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ResetPassword maneja POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "reset password")
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondServiceError(c, h.logger, err, "reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully"})
}

// ChangePassword maneja POST /auth/change-password (requiere bearer).
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "change password")
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), claims.Email(), req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, h.logger, err, "change password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
