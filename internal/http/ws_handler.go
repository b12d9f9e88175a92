package http

import (
	"context"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-backend/internal/chat"
)

// wsConn adapta una conexión websocket al contrato chat.Conn.
type wsConn struct {
	ws *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, payload []byte) error {
	return w.ws.Write(ctx, websocket.MessageText, payload)
}

func (w *wsConn) Close() error {
	return w.ws.CloseNow()
}

// ServeWS maneja GET /ws/chat?token=. Un token inválido no impide conectar:
// el cliente queda como anónimo.
func (h *ChatHandler) ServeWS(c *gin.Context) {
	ctx := c.Request.Context()

	var sender *chat.Sender
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		user, err := h.auth.UserFromToken(ctx, token)
		if err != nil {
			h.logger.Debug("ws token rejected, connecting as anonymous", zap.Error(err))
		} else {
			sender = &chat.Sender{UserID: user.ID, UserName: user.Name}
		}
	}

	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	conn := &wsConn{ws: ws}
	h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(conn)
		_ = conn.Close()
	}()

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		payload, err := chat.EncodeFrame(data, sender)
		if err != nil {
			h.logger.Warn("dropping chat frame", zap.Error(err))
			continue
		}
		h.hub.Broadcast(ctx, payload)
	}
}

// originHostPatterns convierte URLs de origen en los patrones de host que
// espera websocket.AcceptOptions.
func originHostPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
