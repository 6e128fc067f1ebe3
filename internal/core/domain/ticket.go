package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
)

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	StatusOpen     TicketStatus = "open"
	StatusResolved TicketStatus = "resolved"
	StatusClosed   TicketStatus = "closed"
)

// ValidStatus reports whether s is one of the three lifecycle states.
// Any valid status may transition to any other; the close flow is the
// only path that targets StatusClosed explicitly.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case StatusOpen, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Ticket is the core support-case entity. The ticket number is assigned
// exactly once, at creation, and is globally unique.
type Ticket struct {
	ID           uuid.UUID    `json:"id"`
	TicketNumber string       `json:"ticketNumber"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Type         string       `json:"type"`
	Status       TicketStatus `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// NewTicket builds a valid open ticket. The ticket number is composed
// from the configured prefix, the creation year and the sequence value
// issued by the ticket sequencer.
func NewTicket(name, description, ticketType, prefix string, sequence int64) (*Ticket, error) {
	if name == "" {
		return nil, apperrors.ErrNameRequired
	}
	if description == "" {
		return nil, apperrors.ErrDescriptionRequired
	}
	if ticketType == "" {
		return nil, apperrors.ErrTypeRequired
	}

	now := time.Now().UTC()
	return &Ticket{
		TicketNumber: FormatTicketNumber(prefix, now.Year(), sequence),
		Name:         name,
		Description:  description,
		Type:         ticketType,
		Status:       StatusOpen,
		CreatedAt:    now,
	}, nil
}

// FormatTicketNumber renders a human-readable ticket number, e.g. "DEX20261".
func FormatTicketNumber(prefix string, year int, sequence int64) string {
	return fmt.Sprintf("%s%d%d", prefix, year, sequence)
}
