package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
)

func newConversationRepo(t *testing.T) *ConversationRepository {
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	return NewConversationRepository(testPool)
}

// createTestConversation seeds a ticket and its conversation for a fresh
// room, returning both.
func createTestConversation(t *testing.T, ctx context.Context) (*domain.Conversation, *domain.Ticket) {
	t.Helper()
	ticket := createTestTicket(t, ctx, newTicketRepo(t))

	conv, created, err := newConversationRepo(t).CreateOrGet(ctx, &domain.Conversation{
		RoomID:     "room-" + uuid.NewString(),
		TicketID:   ticket.ID,
		CustomerID: uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, created)
	return conv, ticket
}

func TestConversationRepository_CreateOrGet(t *testing.T) {
	ctx := context.Background()
	repo := newConversationRepo(t)

	conv, ticket := createTestConversation(t, ctx)
	assert.NotEqual(t, uuid.Nil, conv.ID)
	assert.Empty(t, conv.MessageIDs)
	assert.Nil(t, conv.AgentID)
	assert.Nil(t, conv.Feedback)

	// A second call for the same room returns the existing record and
	// reports created=false, whatever ids it carries.
	again, created, err := repo.CreateOrGet(ctx, &domain.Conversation{
		RoomID:     conv.RoomID,
		TicketID:   ticket.ID,
		CustomerID: uuid.New(),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)
	assert.Equal(t, conv.CustomerID, again.CustomerID)
}

func TestConversationRepository_GetByRoomID(t *testing.T) {
	ctx := context.Background()
	repo := newConversationRepo(t)

	conv, _ := createTestConversation(t, ctx)

	found, err := repo.GetByRoomID(ctx, conv.RoomID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, found.ID)

	_, err = repo.GetByRoomID(ctx, "room-does-not-exist")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestConversationRepository_AppendMessage(t *testing.T) {
	ctx := context.Background()
	repo := newConversationRepo(t)

	conv, _ := createTestConversation(t, ctx)
	msgRepo := NewMessageRepository(testPool)

	now := time.Now().UTC()
	first, err := msgRepo.Create(ctx, &domain.Message{RoomID: conv.RoomID, Sender: "customer", Body: "hello", CreatedAt: now})
	require.NoError(t, err)
	second, err := msgRepo.Create(ctx, &domain.Message{RoomID: conv.RoomID, Sender: "agent", Body: "hi", CreatedAt: now.Add(time.Second)})
	require.NoError(t, err)

	require.NoError(t, repo.AppendMessage(ctx, conv.RoomID, first.ID))
	require.NoError(t, repo.AppendMessage(ctx, conv.RoomID, second.ID))

	found, err := repo.GetByRoomID(ctx, conv.RoomID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, found.MessageIDs)

	err = repo.AppendMessage(ctx, "room-does-not-exist", first.ID)
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestConversationRepository_SetAgent(t *testing.T) {
	ctx := context.Background()
	repo := newConversationRepo(t)

	conv, _ := createTestConversation(t, ctx)
	agentID := uuid.New()

	assigned, err := repo.SetAgent(ctx, conv.ID, &agentID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AgentID)
	assert.Equal(t, agentID, *assigned.AgentID)

	cleared, err := repo.SetAgent(ctx, conv.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.AgentID)

	_, err = repo.SetAgent(ctx, uuid.New(), &agentID)
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestConversationRepository_RecordFeedbackByTicket(t *testing.T) {
	ctx := context.Background()
	repo := newConversationRepo(t)

	conv, ticket := createTestConversation(t, ctx)

	first := domain.Feedback{Rating: 3, Resolved: domain.FeedbackResolvedNo, Comments: "partially"}
	updated, err := repo.RecordFeedbackByTicket(ctx, ticket.ID, first)
	require.NoError(t, err)
	require.NotNil(t, updated.Feedback)
	assert.Equal(t, first, *updated.Feedback)
	assert.Equal(t, conv.ID, updated.ID)

	// A later close overwrites the earlier feedback.
	second := domain.Feedback{Rating: 5, Resolved: domain.FeedbackResolvedYes, Comments: "all good now"}
	updated, err = repo.RecordFeedbackByTicket(ctx, ticket.ID, second)
	require.NoError(t, err)
	require.NotNil(t, updated.Feedback)
	assert.Equal(t, second, *updated.Feedback)

	_, err = repo.RecordFeedbackByTicket(ctx, uuid.New(), first)
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestConversationRepository_ListByCustomer(t *testing.T) {
	ctx := context.Background()
	repo := newConversationRepo(t)
	ticketRepo := newTicketRepo(t)

	customerID := uuid.New()
	for i := 0; i < 3; i++ {
		ticket := createTestTicket(t, ctx, ticketRepo)
		_, _, err := repo.CreateOrGet(ctx, &domain.Conversation{
			RoomID:     "room-" + uuid.NewString(),
			TicketID:   ticket.ID,
			CustomerID: customerID,
		})
		require.NoError(t, err)
	}

	convs, err := repo.ListByCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, convs, 3)
	for _, conv := range convs {
		assert.Equal(t, customerID, conv.CustomerID)
	}

	convs, err = repo.ListByCustomer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, convs)
}
