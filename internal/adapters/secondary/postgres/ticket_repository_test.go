package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
)

func newTicketRepo(t *testing.T) *TicketRepository {
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	return NewTicketRepository(testPool)
}

// createTestTicket inserts a ticket with a unique number for use as a
// foreign-key target in other tests.
func createTestTicket(t *testing.T, ctx context.Context, repo *TicketRepository) *domain.Ticket {
	t.Helper()
	ticket, err := repo.Create(ctx, &domain.Ticket{
		TicketNumber: "DEX-test-" + uuid.NewString(),
		Name:         "Test Ticket",
		Description:  "Integration test ticket",
		Type:         "bug",
		Status:       domain.StatusOpen,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := newTicketRepo(t)

	created := createTestTicket(t, ctx, repo)
	assert.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.TicketNumber, found.TicketNumber)
	assert.Equal(t, "Test Ticket", found.Name)
	assert.Equal(t, "Integration test ticket", found.Description)
	assert.Equal(t, "bug", found.Type)
	assert.Equal(t, domain.StatusOpen, found.Status)
}

func TestTicketRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTicketRepo(t)

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTicketRepo(t)

	created := createTestTicket(t, ctx, repo)

	updated, err := repo.UpdateStatus(ctx, created.ID, domain.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, updated.Status)

	// Reopening is allowed.
	reopened, err := repo.UpdateStatus(ctx, created.ID, domain.StatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, reopened.Status)

	_, err = repo.UpdateStatus(ctx, uuid.New(), domain.StatusClosed)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_EnsureSequenceIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTicketRepo(t)

	require.NoError(t, repo.EnsureSequence(ctx))

	before, err := repo.NextSequence(ctx)
	require.NoError(t, err)

	// A second seed must not reset the counter.
	require.NoError(t, repo.EnsureSequence(ctx))

	after, err := repo.NextSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestTicketRepository_NextSequenceConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newTicketRepo(t)

	require.NoError(t, repo.EnsureSequence(ctx))

	const workers = 50

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = make(map[int64]bool, workers)
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			value, err := repo.NextSequence(ctx)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			assert.False(t, values[value], "sequence value %d issued twice", value)
			values[value] = true
		}()
	}
	wg.Wait()

	assert.Len(t, values, workers)
}
