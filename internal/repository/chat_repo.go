package repository

import (
	"context"

	"market-backend/internal/domain"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message domain.ChatMessage) error
	ListRecent(ctx context.Context, limit int) ([]domain.ChatMessage, error)
}

type PgChatMessageRepository struct {
	db DB
}

func NewPgChatMessageRepository(db DB) *PgChatMessageRepository {
	return &PgChatMessageRepository{db: db}
}

func (r *PgChatMessageRepository) Create(ctx context.Context, message domain.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (id, user_id, message, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query,
		message.ID,
		message.UserID,
		message.Message,
		message.CreatedAt,
	)
	return err
}

// ListRecent devuelve los mensajes más recientes primero.
func (r *PgChatMessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	const query = `
		SELECT m.id, m.user_id, u.name, m.message, m.created_at
		FROM chat_messages m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var msg domain.ChatMessage
		err = rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.UserName,
			&msg.Message,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
