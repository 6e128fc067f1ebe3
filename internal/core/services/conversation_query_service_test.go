package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/mocks"
	"github.com/dexhq/support-chat-backend/internal/core/services"
)

type queryFixture struct {
	convRepo   *mocks.MockConversationRepository
	msgRepo    *mocks.MockMessageRepository
	ticketRepo *mocks.MockTicketRepository
	directory  *mocks.MockUserDirectory
	svc        *services.ConversationQueryService
}

func newQueryFixture() *queryFixture {
	f := &queryFixture{
		convRepo:   mocks.NewMockConversationRepository(),
		msgRepo:    mocks.NewMockMessageRepository(),
		ticketRepo: mocks.NewMockTicketRepository(),
		directory:  mocks.NewMockUserDirectory(),
	}
	f.svc = services.NewConversationQueryService(f.convRepo, f.msgRepo, f.ticketRepo, f.directory, testLogger())
	return f
}

func TestConversationQueryService_ListConversations(t *testing.T) {
	ctx := context.Background()

	t.Run("joins tickets, messages and customer profiles", func(t *testing.T) {
		f := newQueryFixture()

		customerID := uuid.New()
		ticketID := uuid.New()
		conv := &domain.Conversation{ID: uuid.New(), RoomID: "room-1", TicketID: ticketID, CustomerID: customerID}

		f.convRepo.On("List", ctx).Return([]*domain.Conversation{conv}, nil)
		f.directory.On("BatchCustomers", ctx, []uuid.UUID{customerID}).
			Return([]domain.Profile{{ID: customerID.String(), FullName: "Ada Lovelace"}}, nil)
		f.ticketRepo.On("GetByID", ctx, ticketID).Return(&domain.Ticket{ID: ticketID}, nil)
		f.msgRepo.On("ListByRoom", ctx, "room-1").
			Return([]*domain.Message{{RoomID: "room-1", Body: "hello"}}, nil)

		views, err := f.svc.ListConversations(ctx)

		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Same(t, conv, views[0].Conversation)
		require.NotNil(t, views[0].Customer)
		assert.Equal(t, "Ada Lovelace", views[0].Customer.FullName)
		require.NotNil(t, views[0].Ticket)
		assert.Len(t, views[0].Messages, 1)
		assert.Nil(t, views[0].Agent)
	})

	t.Run("duplicate customers resolve in one batch call", func(t *testing.T) {
		f := newQueryFixture()

		customerID := uuid.New()
		convs := []*domain.Conversation{
			{ID: uuid.New(), RoomID: "room-1", TicketID: uuid.New(), CustomerID: customerID},
			{ID: uuid.New(), RoomID: "room-2", TicketID: uuid.New(), CustomerID: customerID},
		}

		f.convRepo.On("List", ctx).Return(convs, nil)
		f.directory.On("BatchCustomers", ctx, []uuid.UUID{customerID}).
			Return([]domain.Profile{{ID: customerID.String(), FullName: "Ada Lovelace"}}, nil).Once()
		f.ticketRepo.On("GetByID", ctx, mock.Anything).Return(&domain.Ticket{}, nil)
		f.msgRepo.On("ListByRoom", ctx, mock.Anything).Return([]*domain.Message{}, nil)

		views, err := f.svc.ListConversations(ctx)

		require.NoError(t, err)
		require.Len(t, views, 2)
		f.directory.AssertNumberOfCalls(t, "BatchCustomers", 1)
	})

	t.Run("directory and join failures degrade, not fail", func(t *testing.T) {
		f := newQueryFixture()

		conv := &domain.Conversation{ID: uuid.New(), RoomID: "room-1", TicketID: uuid.New(), CustomerID: uuid.New()}
		f.convRepo.On("List", ctx).Return([]*domain.Conversation{conv}, nil)
		f.directory.On("BatchCustomers", ctx, mock.Anything).
			Return(nil, errors.New("identity service down"))
		f.ticketRepo.On("GetByID", ctx, conv.TicketID).Return(nil, apperrors.ErrTicketNotFound)
		f.msgRepo.On("ListByRoom", ctx, "room-1").Return(nil, errors.New("query failed"))

		views, err := f.svc.ListConversations(ctx)

		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Nil(t, views[0].Customer)
		assert.Nil(t, views[0].Ticket)
		assert.Nil(t, views[0].Messages)
	})

	t.Run("store failure is fatal", func(t *testing.T) {
		f := newQueryFixture()

		f.convRepo.On("List", ctx).Return(nil, errors.New("connection refused"))

		_, err := f.svc.ListConversations(ctx)
		assert.Error(t, err)
	})
}

func TestConversationQueryService_ListByCustomer(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("enriches assigned agents only", func(t *testing.T) {
		f := newQueryFixture()

		agentID := uuid.New()
		convs := []*domain.Conversation{
			{ID: uuid.New(), RoomID: "room-1", TicketID: uuid.New(), CustomerID: customerID, AgentID: &agentID},
			{ID: uuid.New(), RoomID: "room-2", TicketID: uuid.New(), CustomerID: customerID},
		}

		f.convRepo.On("ListByCustomer", ctx, customerID).Return(convs, nil)
		f.directory.On("BatchUsers", ctx, []uuid.UUID{agentID}).
			Return([]domain.Profile{{ID: agentID.String(), FullName: "Grace Hopper"}}, nil)
		f.ticketRepo.On("GetByID", ctx, mock.Anything).Return(&domain.Ticket{}, nil)
		f.msgRepo.On("ListByRoom", ctx, mock.Anything).Return([]*domain.Message{}, nil)

		views, err := f.svc.ListByCustomer(ctx, customerID)

		require.NoError(t, err)
		require.Len(t, views, 2)
		require.NotNil(t, views[0].Agent)
		assert.Equal(t, "Grace Hopper", views[0].Agent.FullName)
		assert.Nil(t, views[1].Agent)
	})

	t.Run("no conversations skips the directory entirely", func(t *testing.T) {
		f := newQueryFixture()

		f.convRepo.On("ListByCustomer", ctx, customerID).Return([]*domain.Conversation{}, nil)

		views, err := f.svc.ListByCustomer(ctx, customerID)

		require.NoError(t, err)
		assert.Empty(t, views)
		f.directory.AssertNotCalled(t, "BatchUsers", mock.Anything, mock.Anything)
	})
}
