package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// appendTimeout bounds the detached conversation-append task.
const appendTimeout = 10 * time.Second

// ChatService implements room setup, message relay with the attachment
// side channel, agent assignment and the combined close flow.
type ChatService struct {
	convRepo    ports.ConversationRepository
	msgRepo     ports.MessageRepository
	ticketRepo  ports.TicketRepository
	attachments ports.AttachmentStore
	broadcaster ports.RoomBroadcaster
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.ChatService = (*ChatService)(nil)

// NewChatService creates a new chat service.
func NewChatService(
	convRepo ports.ConversationRepository,
	msgRepo ports.MessageRepository,
	ticketRepo ports.TicketRepository,
	attachments ports.AttachmentStore,
	broadcaster ports.RoomBroadcaster,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		ticketRepo:  ticketRepo,
		attachments: attachments,
		broadcaster: broadcaster,
		logger:      logger.With("component", "chat_service"),
	}
}

// JoinOrCreateRoom resolves the ticket and creates the conversation for
// the room if none exists. The ticket lookup runs first: a missing
// ticket aborts before anything is persisted, so the transport layer can
// roll back its in-memory room registration cleanly.
func (s *ChatService) JoinOrCreateRoom(ctx context.Context, params ports.JoinRoomParams) (*ports.RoomResult, error) {
	if params.RoomID == "" {
		return nil, apperrors.ErrRoomIDRequired
	}
	if params.TicketID == uuid.Nil || params.CustomerID == uuid.Nil {
		return nil, apperrors.ErrInvalidIdentifier
	}

	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	conv, created, err := s.convRepo.CreateOrGet(ctx, &domain.Conversation{
		RoomID:     params.RoomID,
		TicketID:   params.TicketID,
		CustomerID: params.CustomerID,
		MessageIDs: []uuid.UUID{},
	})
	if err != nil {
		s.logger.Error("conversation create failed", "room", params.RoomID, "error", err)
		return nil, apperrors.NewDependencyError(err)
	}

	if created {
		s.logger.Info("conversation created", "room", params.RoomID, "ticket_id", params.TicketID)
	}

	return &ports.RoomResult{
		RoomID:       params.RoomID,
		Conversation: conv,
		Ticket:       ticket,
		Created:      created,
	}, nil
}

// Relay persists a chat message and fans it out to the room. An
// attachment payload is uploaded to the object-storage side channel
// first; if that upload fails the whole relay aborts and nothing is
// persisted or broadcast. Persistence completes before the broadcast, so
// clients never see a message that silently failed to save. The append
// of the message reference to its conversation runs detached: delivery
// is never blocked on secondary bookkeeping.
func (s *ChatService) Relay(ctx context.Context, params ports.RelayParams) (*domain.Message, error) {
	if params.RoomID == "" {
		return nil, apperrors.ErrRoomIDRequired
	}
	if params.Sender == "" {
		return nil, apperrors.ErrSenderRequired
	}

	var attachmentURL string
	if params.Attachment != "" {
		url, err := s.attachments.Upload(ctx, params.Attachment, params.AttachmentType)
		if err != nil {
			s.logger.Error("attachment upload failed", "room", params.RoomID, "error", err)
			return nil, apperrors.NewDependencyError(err)
		}
		attachmentURL = url
	}

	msg, err := s.msgRepo.Create(ctx, &domain.Message{
		RoomID:         params.RoomID,
		Sender:         params.Sender,
		Body:           params.Body,
		AttachmentURL:  attachmentURL,
		AttachmentType: params.AttachmentType,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("message persist failed", "room", params.RoomID, "error", err)
		return nil, apperrors.NewDependencyError(err)
	}

	s.broadcaster.ToRoom(msg.RoomID, domain.Event{
		Type:    domain.EventMessage,
		Payload: msg,
		Room:    msg.RoomID,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		appendCtx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()
		if err := s.convRepo.AppendMessage(appendCtx, msg.RoomID, msg.ID); err != nil {
			// The message is already persisted and delivered; log for
			// offline reconciliation.
			s.logger.Error("conversation append failed",
				"room", msg.RoomID,
				"message_id", msg.ID,
				"error", err,
			)
		}
	}()

	return msg, nil
}

// AssignAgent sets the conversation's agent and notifies the room.
func (s *ChatService) AssignAgent(ctx context.Context, params ports.AssignAgentParams) (*domain.Conversation, error) {
	if params.ConversationID == uuid.Nil || params.AgentID == uuid.Nil {
		return nil, apperrors.ErrInvalidIdentifier
	}

	agentID := params.AgentID
	conv, err := s.convRepo.SetAgent(ctx, params.ConversationID, &agentID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.ToRoom(conv.RoomID, domain.Event{
		Type:    domain.EventUserAssigned,
		Payload: conv,
		Room:    conv.RoomID,
	})
	return conv, nil
}

// UnassignAgent clears the conversation's agent and notifies the room.
func (s *ChatService) UnassignAgent(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	if conversationID == uuid.Nil {
		return nil, apperrors.ErrInvalidIdentifier
	}

	conv, err := s.convRepo.SetAgent(ctx, conversationID, nil)
	if err != nil {
		return nil, err
	}

	s.broadcaster.ToRoom(conv.RoomID, domain.Event{
		Type:    domain.EventUserUnassigned,
		Payload: conv,
		Room:    conv.RoomID,
	})
	return conv, nil
}

// CloseTicketWithFeedback records feedback on the ticket's conversation
// and then closes the ticket. The two writes are not one transaction; a
// crash in between leaves feedback recorded and the ticket open, which
// the next close attempt repairs.
func (s *ChatService) CloseTicketWithFeedback(ctx context.Context, params ports.CloseTicketParams) (*ports.CloseResult, error) {
	if params.TicketID == uuid.Nil {
		return nil, apperrors.ErrInvalidIdentifier
	}
	if err := params.Feedback.Validate(); err != nil {
		return nil, err
	}

	conv, err := s.convRepo.RecordFeedbackByTicket(ctx, params.TicketID, params.Feedback)
	if err != nil {
		return nil, err
	}

	roomID := params.RoomID
	if roomID == "" {
		roomID = conv.RoomID
	}

	ticket, err := s.ticketRepo.UpdateStatus(ctx, params.TicketID, domain.StatusClosed)
	if err != nil {
		return nil, err
	}

	change := domain.StatusChange{RoomID: roomID, Status: ticket.Status}
	s.broadcaster.ToRoom(roomID, domain.Event{
		Type:    domain.EventTicketClosed,
		Payload: change,
		Room:    roomID,
	})
	s.broadcaster.ToAgents(domain.Event{Type: domain.EventTicketClosed, Payload: change})

	s.logger.Info("ticket closed with feedback", "ticket_id", ticket.ID, "room", roomID)
	return &ports.CloseResult{Conversation: conv, Ticket: ticket}, nil
}

// Shutdown waits for detached conversation-append tasks to finish.
func (s *ChatService) Shutdown() {
	s.wg.Wait()
}
