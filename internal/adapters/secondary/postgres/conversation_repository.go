package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

const conversationColumns = `
        id, room_id, ticket_id, customer_id, agent_id, message_ids,
        feedback_rating, feedback_resolved, feedback_comments, created_at`

// ConversationRepository implements ports.ConversationRepository using
// PostgreSQL.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// CreateOrGet creates the conversation for conv.RoomID if none exists.
// The unique index on room_id makes this idempotent under concurrency:
// the losing insert returns no row and falls back to fetching the
// winner's record.
func (r *ConversationRepository) CreateOrGet(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	const query = `
        INSERT INTO conversations (room_id, ticket_id, customer_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (room_id) DO NOTHING
        RETURNING` + conversationColumns

	created, err := scanConversation(r.pool.QueryRow(ctx, query,
		conv.RoomID,
		pgUUID(conv.TicketID),
		pgUUID(conv.CustomerID),
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, apperrors.ErrConversationNotFound) {
		return nil, false, err
	}

	existing, err := r.GetByRoomID(ctx, conv.RoomID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByRoomID fetches the conversation bound to a room.
func (r *ConversationRepository) GetByRoomID(ctx context.Context, roomID string) (*domain.Conversation, error) {
	const query = `
        SELECT` + conversationColumns + `
        FROM conversations WHERE room_id = $1`

	return scanConversation(r.pool.QueryRow(ctx, query, roomID))
}

// AppendMessage appends a message reference to the room's conversation.
func (r *ConversationRepository) AppendMessage(ctx context.Context, roomID string, messageID uuid.UUID) error {
	const query = `
        UPDATE conversations
        SET message_ids = array_append(message_ids, $2)
        WHERE room_id = $1`

	tag, err := r.pool.Exec(ctx, query, roomID, pgUUID(messageID))
	if err != nil {
		return fmt.Errorf("failed to append message reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConversationNotFound
	}
	return nil
}

// SetAgent assigns (non-nil) or clears (nil) the conversation's agent.
func (r *ConversationRepository) SetAgent(ctx context.Context, conversationID uuid.UUID, agentID *uuid.UUID) (*domain.Conversation, error) {
	const query = `
        UPDATE conversations SET agent_id = $2 WHERE id = $1
        RETURNING` + conversationColumns

	return scanConversation(r.pool.QueryRow(ctx, query, pgUUID(conversationID), pgUUIDPtr(agentID)))
}

// RecordFeedbackByTicket overwrites the feedback on the conversation
// referencing the ticket.
func (r *ConversationRepository) RecordFeedbackByTicket(ctx context.Context, ticketID uuid.UUID, feedback domain.Feedback) (*domain.Conversation, error) {
	const query = `
        UPDATE conversations
        SET feedback_rating = $2, feedback_resolved = $3, feedback_comments = $4
        WHERE ticket_id = $1
        RETURNING` + conversationColumns

	return scanConversation(r.pool.QueryRow(ctx, query,
		pgUUID(ticketID),
		feedback.Rating,
		feedback.Resolved,
		feedback.Comments,
	))
}

// List returns all conversations, newest first.
func (r *ConversationRepository) List(ctx context.Context) ([]*domain.Conversation, error) {
	const query = `
        SELECT` + conversationColumns + `
        FROM conversations ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return collectConversations(rows)
}

// ListByCustomer returns one customer's conversations, newest first.
func (r *ConversationRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Conversation, error) {
	const query = `
        SELECT` + conversationColumns + `
        FROM conversations WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, pgUUID(customerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations by customer: %w", err)
	}
	defer rows.Close()

	return collectConversations(rows)
}

func collectConversations(rows pgx.Rows) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var (
		conv       domain.Conversation
		id         pgtype.UUID
		ticketID   pgtype.UUID
		customerID pgtype.UUID
		agentID    pgtype.UUID
		messageIDs []pgtype.UUID
		rating     pgtype.Int4
		resolved   pgtype.Text
		comments   pgtype.Text
	)
	err := row.Scan(
		&id,
		&conv.RoomID,
		&ticketID,
		&customerID,
		&agentID,
		&messageIDs,
		&rating,
		&resolved,
		&comments,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	conv.ID = fromPgUUID(id)
	conv.TicketID = fromPgUUID(ticketID)
	conv.CustomerID = fromPgUUID(customerID)
	conv.AgentID = fromPgUUIDPtr(agentID)
	conv.MessageIDs = fromPgUUIDs(messageIDs)
	if rating.Valid {
		conv.Feedback = &domain.Feedback{
			Rating:   int(rating.Int32),
			Resolved: resolved.String,
			Comments: comments.String,
		}
	}
	return &conv, nil
}
