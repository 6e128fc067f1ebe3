package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// TicketService implements the ticket lifecycle: creation with atomic
// number issuance, and status transitions.
type TicketService struct {
	ticketRepo   ports.TicketRepository
	broadcaster  ports.RoomBroadcaster
	numberPrefix string
	logger       *slog.Logger
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service.
func NewTicketService(
	ticketRepo ports.TicketRepository,
	broadcaster ports.RoomBroadcaster,
	numberPrefix string,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:   ticketRepo,
		broadcaster:  broadcaster,
		numberPrefix: numberPrefix,
		logger:       logger.With("component", "ticket_service"),
	}
}

// CreateTicket obtains a fresh sequence value and persists a new open
// ticket. If the sequencer fails, no ticket number is assigned by any
// fallback; the creation aborts.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	// Validate before touching the counter so rejected requests never
	// consume a sequence value.
	if params.Name == "" {
		return nil, apperrors.ErrNameRequired
	}
	if params.Description == "" {
		return nil, apperrors.ErrDescriptionRequired
	}
	if params.Type == "" {
		return nil, apperrors.ErrTypeRequired
	}

	seq, err := s.ticketRepo.NextSequence(ctx)
	if err != nil {
		s.logger.Error("ticket sequence increment failed", "error", err)
		return nil, apperrors.NewDependencyError(err)
	}

	ticket, err := domain.NewTicket(params.Name, params.Description, params.Type, s.numberPrefix, seq)
	if err != nil {
		return nil, err
	}

	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		s.logger.Error("ticket persist failed", "ticket_number", ticket.TicketNumber, "error", err)
		return nil, apperrors.NewDependencyError(err)
	}

	s.logger.Info("ticket created", "ticket_id", created.ID, "ticket_number", created.TicketNumber)
	return created, nil
}

// GetTicket fetches a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, id)
}

// UpdateStatus moves a ticket to any of the three lifecycle states. No
// transition table is enforced beyond the enum itself.
func (s *TicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	if !domain.ValidStatus(params.Status) {
		return nil, apperrors.ErrInvalidStatus
	}

	ticket, err := s.ticketRepo.UpdateStatus(ctx, params.TicketID, params.Status)
	if err != nil {
		return nil, err
	}

	change := domain.StatusChange{RoomID: params.RoomID, Status: ticket.Status}
	if params.RoomID != "" {
		s.broadcaster.ToRoom(params.RoomID, domain.Event{
			Type:    domain.EventStatusUpdated,
			Payload: change,
			Room:    params.RoomID,
		})
	}
	s.broadcaster.ToAgents(domain.Event{Type: domain.EventStatusUpdated, Payload: change})

	s.logger.Info("ticket status updated", "ticket_id", ticket.ID, "status", ticket.Status)
	return ticket, nil
}

// CloseTicket moves the ticket to closed. It is the second half of the
// combined close-with-feedback flow.
func (s *TicketService) CloseTicket(ctx context.Context, id uuid.UUID, roomID string) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.UpdateStatus(ctx, id, domain.StatusClosed)
	if err != nil {
		return nil, err
	}

	change := domain.StatusChange{RoomID: roomID, Status: ticket.Status}
	if roomID != "" {
		s.broadcaster.ToRoom(roomID, domain.Event{
			Type:    domain.EventTicketClosed,
			Payload: change,
			Room:    roomID,
		})
	}
	s.broadcaster.ToAgents(domain.Event{Type: domain.EventTicketClosed, Payload: change})

	s.logger.Info("ticket closed", "ticket_id", ticket.ID)
	return ticket, nil
}
