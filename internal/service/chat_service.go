package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"market-backend/internal/domain"
	"market-backend/internal/repository"
)

const (
	DefaultChatHistoryLimit = 50
	MaxChatHistoryLimit     = 100
)

var ErrChatServiceNotConfigured = errors.New("chat service not configured")

// Broadcaster reparte un payload ya serializado a las conexiones vivas.
type Broadcaster interface {
	Broadcast(ctx context.Context, payload []byte) int
}

// ChatService persiste mensajes del chat y los difunde en vivo.
type ChatService struct {
	logger   *zap.Logger
	messages repository.ChatMessageRepository
	hub      Broadcaster
}

func NewChatService(logger *zap.Logger, messages repository.ChatMessageRepository, hub Broadcaster) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{logger: logger, messages: messages, hub: hub}
}

// History devuelve los últimos mensajes; limit fuera de rango usa el default
// o se recorta al máximo.
func (s *ChatService) History(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	if s == nil || s.messages == nil {
		return nil, ErrChatServiceNotConfigured
	}
	if limit <= 0 {
		limit = DefaultChatHistoryLimit
	}
	if limit > MaxChatHistoryLimit {
		limit = MaxChatHistoryLimit
	}
	return s.messages.ListRecent(ctx, limit)
}

func (s *ChatService) Post(ctx context.Context, author domain.User, text string) (domain.ChatMessage, error) {
	if s == nil || s.messages == nil {
		return domain.ChatMessage{}, ErrChatServiceNotConfigured
	}
	text = strings.TrimSpace(text)
	if text == "" || author.ID == "" {
		return domain.ChatMessage{}, ErrInvalidInput
	}

	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    author.ID,
		UserName:  author.Name,
		Message:   text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return domain.ChatMessage{}, err
	}

	if s.hub != nil {
		if payload, err := json.Marshal(msg); err == nil {
			delivered := s.hub.Broadcast(ctx, payload)
			s.logger.Debug("chat message broadcast", zap.String("message_id", msg.ID), zap.Int("delivered", delivered))
		}
	}
	return msg, nil
}
