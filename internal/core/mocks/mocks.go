package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TicketStatus) (*domain.Ticket, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) NextSequence(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) EnsureSequence(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockConversationRepository is a mock implementation of ports.ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func NewMockConversationRepository() *MockConversationRepository {
	return &MockConversationRepository{}
}

func (m *MockConversationRepository) CreateOrGet(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	args := m.Called(ctx, conv)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Conversation), args.Bool(1), args.Error(2)
}

func (m *MockConversationRepository) GetByRoomID(ctx context.Context, roomID string) (*domain.Conversation, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) AppendMessage(ctx context.Context, roomID string, messageID uuid.UUID) error {
	args := m.Called(ctx, roomID, messageID)
	return args.Error(0)
}

func (m *MockConversationRepository) SetAgent(ctx context.Context, conversationID uuid.UUID, agentID *uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) RecordFeedbackByTicket(ctx context.Context, ticketID uuid.UUID, feedback domain.Feedback) (*domain.Conversation, error) {
	args := m.Called(ctx, ticketID, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) List(ctx context.Context) ([]*domain.Conversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Conversation, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

// MockMessageRepository is a mock implementation of ports.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{}
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// MockAttachmentStore is a mock implementation of ports.AttachmentStore
type MockAttachmentStore struct {
	mock.Mock
}

func NewMockAttachmentStore() *MockAttachmentStore {
	return &MockAttachmentStore{}
}

func (m *MockAttachmentStore) Upload(ctx context.Context, payload string, kind string) (string, error) {
	args := m.Called(ctx, payload, kind)
	return args.String(0), args.Error(1)
}

// MockIdentityVerifier is a mock implementation of ports.IdentityVerifier
type MockIdentityVerifier struct {
	mock.Mock
}

func NewMockIdentityVerifier() *MockIdentityVerifier {
	return &MockIdentityVerifier{}
}

func (m *MockIdentityVerifier) VerifyToken(ctx context.Context, token string, role string) (*domain.Principal, error) {
	args := m.Called(ctx, token, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

// MockUserDirectory is a mock implementation of ports.UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func NewMockUserDirectory() *MockUserDirectory {
	return &MockUserDirectory{}
}

func (m *MockUserDirectory) BatchCustomers(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *MockUserDirectory) BatchUsers(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}

// MockVerificationCache is a mock implementation of ports.VerificationCache
type MockVerificationCache struct {
	mock.Mock
}

func NewMockVerificationCache() *MockVerificationCache {
	return &MockVerificationCache{}
}

func (m *MockVerificationCache) Get(ctx context.Context, key string) (*domain.Principal, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

func (m *MockVerificationCache) Set(ctx context.Context, key string, principal *domain.Principal, ttl time.Duration) error {
	args := m.Called(ctx, key, principal, ttl)
	return args.Error(0)
}

// MockRoomBroadcaster is a mock implementation of ports.RoomBroadcaster
type MockRoomBroadcaster struct {
	mock.Mock
}

func NewMockRoomBroadcaster() *MockRoomBroadcaster {
	return &MockRoomBroadcaster{}
}

func (m *MockRoomBroadcaster) ToRoom(roomID string, event domain.Event) {
	m.Called(roomID, event)
}

func (m *MockRoomBroadcaster) ToAgents(event domain.Event) {
	m.Called(event)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) CloseTicket(ctx context.Context, id uuid.UUID, roomID string) (*domain.Ticket, error) {
	args := m.Called(ctx, id, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// MockConversationQueryService is a mock implementation of ports.ConversationQueryService
type MockConversationQueryService struct {
	mock.Mock
}

func NewMockConversationQueryService() *MockConversationQueryService {
	return &MockConversationQueryService{}
}

func (m *MockConversationQueryService) ListConversations(ctx context.Context) ([]ports.ConversationView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.ConversationView), args.Error(1)
}

func (m *MockConversationQueryService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]ports.ConversationView, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.ConversationView), args.Error(1)
}
