// Package chat mantiene las conexiones vivas del chat y reparte cada mensaje
// a todas ellas.
package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"market-backend/internal/metrics"
)

const defaultSendTimeout = 5 * time.Second

// Conn es una conexión registrada en el Hub.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Hub es el dueño exclusivo del conjunto de conexiones activas.
type Hub struct {
	logger      *zap.Logger
	sendTimeout time.Duration

	mu    sync.RWMutex
	conns map[Conn]struct{}
}

func NewHub(logger *zap.Logger, sendTimeout time.Duration) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Hub{
		logger:      logger,
		sendTimeout: sendTimeout,
		conns:       make(map[Conn]struct{}),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	metrics.SetChatConnections(n)
}

// Unregister es idempotente.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	metrics.SetChatConnections(n)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast envía payload a cada conexión presente al momento de la llamada
// y devuelve cuántas lo recibieron. Las conexiones que fallan se desregistran
// y cierran; el error nunca llega al emisor.
func (h *Hub) Broadcast(ctx context.Context, payload []byte) int {
	snapshot := h.snapshot()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []Conn
	)
	for _, c := range snapshot {
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
			defer cancel()
			if err := c.Send(sendCtx, payload); err != nil {
				h.logger.Debug("chat send failed", zap.Error(err))
				mu.Lock()
				failed = append(failed, c)
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	for _, c := range failed {
		h.Unregister(c)
		_ = c.Close()
	}
	metrics.RecordBroadcast(len(failed))
	if len(failed) > 0 {
		h.logger.Info("evicted chat connections", zap.Int("count", len(failed)))
	}
	return len(snapshot) - len(failed)
}

// Close cierra y descarta todas las conexiones.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[Conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		_ = c.Close()
	}
	metrics.SetChatConnections(0)
}

func (h *Hub) snapshot() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}
