package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
)

// --- Collaborator ports (secondary adapters) ---

// AttachmentStore is the object-storage side channel for attachment
// payloads. Upload returns the public URL of the stored object.
type AttachmentStore interface {
	Upload(ctx context.Context, payload string, kind string) (string, error)
}

// IdentityVerifier is the synchronous pass/fail token check delegated
// to the external identity service.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string, role string) (*domain.Principal, error)
}

// UserDirectory batch-resolves customer and agent identifiers to
// profile records via the identity service.
type UserDirectory interface {
	BatchCustomers(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error)
	BatchUsers(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error)
}

// VerificationCache remembers successful token verifications so hot
// connections do not hit the identity service on every request.
type VerificationCache interface {
	Get(ctx context.Context, key string) (*domain.Principal, error)
	Set(ctx context.Context, key string, principal *domain.Principal, ttl time.Duration) error
}

// RoomBroadcaster is the transport fan-out port implemented by the
// WebSocket hub. Delivery is best effort; slow subscribers are dropped,
// never waited on.
type RoomBroadcaster interface {
	ToRoom(roomID string, event domain.Event)
	ToAgents(event domain.Event)
}

// --- Service ports (core) ---

// CreateTicketParams defines the required input for creating a ticket.
type CreateTicketParams struct {
	Name        string
	Description string
	Type        string
}

// UpdateStatusParams defines the input for changing a ticket's status.
// RoomID, when known, routes the resulting broadcast.
type UpdateStatusParams struct {
	TicketID uuid.UUID
	Status   domain.TicketStatus
	RoomID   string
}

// TicketService defines the ticket lifecycle operations.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Ticket, error)
	CloseTicket(ctx context.Context, id uuid.UUID, roomID string) (*domain.Ticket, error)
}

// JoinRoomParams is the input for joining or creating a chat room.
type JoinRoomParams struct {
	RoomID     string
	TicketID   uuid.UUID
	CustomerID uuid.UUID
}

// RoomResult is the reconciled response for a join-or-create request: the
// populated conversation plus its ticket.
type RoomResult struct {
	RoomID       string               `json:"roomId"`
	Conversation *domain.Conversation `json:"conversation"`
	Ticket       *domain.Ticket       `json:"ticket"`
	Created      bool                 `json:"-"`
}

// RelayParams is the input for relaying a chat message.
type RelayParams struct {
	RoomID         string
	Sender         string
	Body           string
	Attachment     string
	AttachmentType string
}

// AssignAgentParams is the input for assigning an agent to a conversation.
type AssignAgentParams struct {
	ConversationID uuid.UUID
	AgentID        uuid.UUID
}

// CloseTicketParams is the input for the combined close-with-feedback flow.
type CloseTicketParams struct {
	TicketID uuid.UUID
	RoomID   string
	Feedback domain.Feedback
}

// CloseResult carries both records touched by the combined close flow.
type CloseResult struct {
	Conversation *domain.Conversation `json:"conversation"`
	Ticket       *domain.Ticket       `json:"ticket"`
}

// ChatService defines the session-coordination operations: room
// join/create, message relay and the conversation-side ticket flows.
type ChatService interface {
	JoinOrCreateRoom(ctx context.Context, params JoinRoomParams) (*RoomResult, error)
	Relay(ctx context.Context, params RelayParams) (*domain.Message, error)
	AssignAgent(ctx context.Context, params AssignAgentParams) (*domain.Conversation, error)
	UnassignAgent(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error)
	CloseTicketWithFeedback(ctx context.Context, params CloseTicketParams) (*CloseResult, error)

	// Shutdown waits for detached bookkeeping tasks to drain.
	Shutdown()
}

// ConversationView is a conversation joined with its ticket, message
// history and externally resolved profiles for the read endpoints.
type ConversationView struct {
	Conversation *domain.Conversation `json:"conversation"`
	Ticket       *domain.Ticket       `json:"ticket"`
	Messages     []*domain.Message    `json:"messages"`
	Customer     *domain.Profile      `json:"customer,omitempty"`
	Agent        *domain.Profile      `json:"user,omitempty"`
}

// ConversationQueryService serves the read-side listing endpoints.
type ConversationQueryService interface {
	ListConversations(ctx context.Context) ([]ConversationView, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]ConversationView, error)
}
