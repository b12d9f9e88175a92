package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/chat"
	"market-backend/internal/service"
)

// ChatHandler mantiene dependencias para el historial y el canal en vivo.
type ChatHandler struct {
	logger         *zap.Logger
	chatServ       *service.ChatService
	auth           *service.AuthService
	hub            *chat.Hub
	originPatterns []string
}

// NewChatHandler crea una instancia de ChatHandler. allowedOrigins son las
// mismas URLs de CORS; el upgrade websocket las compara por host.
func NewChatHandler(
	logger *zap.Logger,
	chatServ *service.ChatService,
	auth *service.AuthService,
	hub *chat.Hub,
	allowedOrigins []string,
) *ChatHandler {
	return &ChatHandler{
		logger:         logger,
		chatServ:       chatServ,
		auth:           auth,
		hub:            hub,
		originPatterns: originHostPatterns(allowedOrigins),
	}
}

// History maneja GET /chat/messages?limit=.
func (h *ChatHandler) History(c *gin.Context) {
	limit := service.DefaultChatHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > service.MaxChatHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	messages, err := h.chatServ.History(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, h.logger, err, "load chat history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// PostMessage maneja POST /chat/messages: persiste y difunde.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err, "post message")
		return
	}

	author, err := h.auth.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err, "load user")
		return
	}
	msg, err := h.chatServ.Post(c.Request.Context(), author, req.Message)
	if err != nil {
		respondServiceError(c, h.logger, err, "post message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}
