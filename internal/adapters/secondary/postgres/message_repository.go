package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// MessageRepository implements ports.MessageRepository using PostgreSQL.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new message repository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create persists a chat message.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	const query = `
        INSERT INTO messages (room_id, sender, body, attachment_url, attachment_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	var id pgtype.UUID
	err := r.pool.QueryRow(ctx, query,
		msg.RoomID,
		msg.Sender,
		msg.Body,
		msg.AttachmentURL,
		msg.AttachmentType,
		msg.CreatedAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	msg.ID = fromPgUUID(id)
	return msg, nil
}

// ListByRoom returns a room's messages in send order.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	const query = `
        SELECT id, room_id, sender, body, attachment_url, attachment_type, created_at
        FROM messages WHERE room_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		msg domain.Message
		id  pgtype.UUID
	)
	err := row.Scan(
		&id,
		&msg.RoomID,
		&msg.Sender,
		&msg.Body,
		&msg.AttachmentURL,
		&msg.AttachmentType,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	msg.ID = fromPgUUID(id)
	return &msg, nil
}
