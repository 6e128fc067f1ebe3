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

// sequenceID is the single counter row backing ticket numbers.
const sequenceID = "ticket"

// TicketRepository implements ports.TicketRepository using PostgreSQL.
type TicketRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// Create persists a new ticket.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
        INSERT INTO tickets (ticket_number, name, description, type, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	var id pgtype.UUID
	err := r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Name,
		ticket.Description,
		ticket.Type,
		string(ticket.Status),
		ticket.CreatedAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	ticket.ID = fromPgUUID(id)
	return ticket, nil
}

// GetByID fetches a ticket by its identifier.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const query = `
        SELECT id, ticket_number, name, description, type, status, created_at
        FROM tickets WHERE id = $1`

	return scanTicket(r.pool.QueryRow(ctx, query, pgUUID(id)))
}

// UpdateStatus moves the ticket to the given status and returns the
// updated record.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TicketStatus) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status = $2 WHERE id = $1
        RETURNING id, ticket_number, name, description, type, status, created_at`

	return scanTicket(r.pool.QueryRow(ctx, query, pgUUID(id), string(status)))
}

// NextSequence atomically increments and returns the ticket counter. The
// increment and read are one statement, so concurrent callers always get
// distinct values.
func (r *TicketRepository) NextSequence(ctx context.Context) (int64, error) {
	const query = `
        UPDATE ticket_sequences SET value = value + 1 WHERE id = $1
        RETURNING value`

	var value int64
	if err := r.pool.QueryRow(ctx, query, sequenceID).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to advance ticket sequence: %w", err)
	}
	return value, nil
}

// EnsureSequence seeds the counter row at 0 if it does not exist yet.
func (r *TicketRepository) EnsureSequence(ctx context.Context) error {
	const query = `
        INSERT INTO ticket_sequences (id, value) VALUES ($1, 0)
        ON CONFLICT (id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, sequenceID); err != nil {
		return fmt.Errorf("failed to seed ticket sequence: %w", err)
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		id     pgtype.UUID
		status string
	)
	err := row.Scan(
		&id,
		&ticket.TicketNumber,
		&ticket.Name,
		&ticket.Description,
		&ticket.Type,
		&status,
		&ticket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}

	ticket.ID = fromPgUUID(id)
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}
