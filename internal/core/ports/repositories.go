package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
)

// TicketRepository is the persistence port for tickets and the ticket
// sequence counter.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TicketStatus) (*domain.Ticket, error)

	// NextSequence atomically increments and returns the ticket counter.
	// The read-modify-write is a single store operation; concurrent
	// callers never observe the same value.
	NextSequence(ctx context.Context) (int64, error)

	// EnsureSequence seeds the counter row at 0 if absent. Called once
	// at startup.
	EnsureSequence(ctx context.Context) error
}

// ConversationRepository is the persistence port for conversations.
type ConversationRepository interface {
	// CreateOrGet creates the conversation for conv.RoomID if none
	// exists, otherwise returns the existing one unchanged. The boolean
	// reports whether a new record was created.
	CreateOrGet(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error)

	GetByRoomID(ctx context.Context, roomID string) (*domain.Conversation, error)

	// AppendMessage appends a message reference to the room's
	// conversation. Fails with ErrConversationNotFound if the room is
	// unknown.
	AppendMessage(ctx context.Context, roomID string, messageID uuid.UUID) error

	// SetAgent assigns (non-nil) or clears (nil) the agent reference.
	SetAgent(ctx context.Context, conversationID uuid.UUID, agentID *uuid.UUID) (*domain.Conversation, error)

	// RecordFeedbackByTicket overwrites the feedback record on the
	// conversation referencing ticketID.
	RecordFeedbackByTicket(ctx context.Context, ticketID uuid.UUID, feedback domain.Feedback) (*domain.Conversation, error)

	List(ctx context.Context) ([]*domain.Conversation, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Conversation, error)
}

// MessageRepository is the persistence port for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error)
}
