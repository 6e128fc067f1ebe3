package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// ConversationQueryService serves the read-side listing endpoints,
// joining persisted conversations with profile records fetched from the
// identity service in one batch call.
type ConversationQueryService struct {
	convRepo   ports.ConversationRepository
	msgRepo    ports.MessageRepository
	ticketRepo ports.TicketRepository
	directory  ports.UserDirectory
	logger     *slog.Logger
}

var _ ports.ConversationQueryService = (*ConversationQueryService)(nil)

// NewConversationQueryService creates a new read-side service.
func NewConversationQueryService(
	convRepo ports.ConversationRepository,
	msgRepo ports.MessageRepository,
	ticketRepo ports.TicketRepository,
	directory ports.UserDirectory,
	logger *slog.Logger,
) *ConversationQueryService {
	return &ConversationQueryService{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		ticketRepo: ticketRepo,
		directory:  directory,
		logger:     logger.With("component", "conversation_query"),
	}
}

// ListConversations returns every conversation with its ticket, message
// history and customer profile.
func (s *ConversationQueryService) ListConversations(ctx context.Context) ([]ports.ConversationView, error) {
	convs, err := s.convRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	customerIDs := uniqueIDs(convs, func(c *domain.Conversation) *uuid.UUID { return &c.CustomerID })
	profiles := s.lookup(ctx, customerIDs, s.directory.BatchCustomers)

	views := make([]ports.ConversationView, 0, len(convs))
	for _, conv := range convs {
		views = append(views, s.buildView(ctx, conv, profiles[conv.CustomerID.String()], nil))
	}
	return views, nil
}

// ListByCustomer returns one customer's conversations, enriched with the
// assigned agents' profiles where present.
func (s *ConversationQueryService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]ports.ConversationView, error) {
	convs, err := s.convRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []ports.ConversationView{}, nil
	}

	agentIDs := uniqueIDs(convs, func(c *domain.Conversation) *uuid.UUID { return c.AgentID })
	agents := s.lookup(ctx, agentIDs, s.directory.BatchUsers)

	views := make([]ports.ConversationView, 0, len(convs))
	for _, conv := range convs {
		var agent *domain.Profile
		if conv.AgentID != nil {
			agent = agents[conv.AgentID.String()]
		}
		views = append(views, s.buildView(ctx, conv, nil, agent))
	}
	return views, nil
}

func (s *ConversationQueryService) buildView(ctx context.Context, conv *domain.Conversation, customer, agent *domain.Profile) ports.ConversationView {
	view := ports.ConversationView{
		Conversation: conv,
		Customer:     customer,
		Agent:        agent,
	}

	// Missing joins degrade the listing, they do not fail it.
	if ticket, err := s.ticketRepo.GetByID(ctx, conv.TicketID); err == nil {
		view.Ticket = ticket
	} else {
		s.logger.Warn("ticket lookup failed for listing", "ticket_id", conv.TicketID, "error", err)
	}
	if msgs, err := s.msgRepo.ListByRoom(ctx, conv.RoomID); err == nil {
		view.Messages = msgs
	} else {
		s.logger.Warn("message lookup failed for listing", "room", conv.RoomID, "error", err)
	}
	return view
}

// lookup batch-resolves profiles, returning an ID-keyed map. Directory
// failures are logged and yield an empty map so listings still render.
func (s *ConversationQueryService) lookup(
	ctx context.Context,
	ids []uuid.UUID,
	fetch func(context.Context, []uuid.UUID) ([]domain.Profile, error),
) map[string]*domain.Profile {
	out := make(map[string]*domain.Profile, len(ids))
	if len(ids) == 0 {
		return out
	}

	profiles, err := fetch(ctx, ids)
	if err != nil {
		s.logger.Warn("profile batch lookup failed", "count", len(ids), "error", err)
		return out
	}
	for i := range profiles {
		out[profiles[i].ID] = &profiles[i]
	}
	return out
}

func uniqueIDs(convs []*domain.Conversation, pick func(*domain.Conversation) *uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(convs))
	ids := make([]uuid.UUID, 0, len(convs))
	for _, conv := range convs {
		id := pick(conv)
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		ids = append(ids, *id)
	}
	return ids
}
