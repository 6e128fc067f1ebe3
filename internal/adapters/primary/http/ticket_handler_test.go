package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/mocks"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTicketRouter(svc ports.TicketService) chi.Router {
	handler := NewTicketHandler(svc, NewErrorHandler(testLogger()), testLogger())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestTicketHandler_CreateTicket(t *testing.T) {
	t.Run("valid request returns 201 with the ticket", func(t *testing.T) {
		mockSvc := mocks.NewMockTicketService()
		ticket := &domain.Ticket{
			ID:           uuid.New(),
			TicketNumber: "DEX2026101",
			Name:         "Login broken",
			Status:       domain.StatusOpen,
		}
		mockSvc.On("CreateTicket", mock.Anything, ports.CreateTicketParams{
			Name:        "Login broken",
			Description: "Cannot sign in",
			Type:        "bug",
		}).Return(ticket, nil)

		body := `{"name":"Login broken","description":"Cannot sign in","type":"bug"}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()

		newTicketRouter(mockSvc).ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusCreated, rec.Code)

		var got domain.Ticket
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, ticket.ID, got.ID)
		assert.Equal(t, "DEX2026101", got.TicketNumber)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing fields return 422 with field errors", func(t *testing.T) {
		mockSvc := mocks.NewMockTicketService()

		body := `{"name":"","description":"","type":"bug"}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()

		newTicketRouter(mockSvc).ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

		var resp ValidationErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.Contains(t, resp.Fields, "name")
		assert.Contains(t, resp.Fields, "description")
		mockSvc.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
	})

	t.Run("malformed json returns 400", func(t *testing.T) {
		mockSvc := mocks.NewMockTicketService()

		req := httptest.NewRequest(stdhttp.MethodPost, "/", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()

		newTicketRouter(mockSvc).ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	})

	t.Run("sequencer outage surfaces as 502", func(t *testing.T) {
		mockSvc := mocks.NewMockTicketService()
		mockSvc.On("CreateTicket", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewDependencyError(context.DeadlineExceeded))

		body := `{"name":"n","description":"d","type":"bug"}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()

		newTicketRouter(mockSvc).ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusBadGateway, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "DEPENDENCY_ERROR", resp.Code)
	})
}

func TestTicketHandler_GetTicket(t *testing.T) {
	t.Run("returns the ticket wrapped in data", func(t *testing.T) {
		mockSvc := mocks.NewMockTicketService()
		ticketID := uuid.New()
		mockSvc.On("GetTicket", mock.Anything, ticketID).
			Return(&domain.Ticket{ID: ticketID, Name: "Login broken"}, nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/"+ticketID.String(), nil)
		rec := httptest.NewRecorder()

		newTicketRouter(mockSvc).ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusOK, rec.Code)

		var resp struct {
			Data domain.Ticket `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, ticketID, resp.Data.ID)
	})

	t.Run("unknown ticket returns 404", func(t *testing.T) {
		mockSvc := mocks.NewMockTicketService()
		ticketID := uuid.New()
		mockSvc.On("GetTicket", mock.Anything, ticketID).
			Return(nil, apperrors.ErrTicketNotFound)

		req := httptest.NewRequest(stdhttp.MethodGet, "/"+ticketID.String(), nil)
		rec := httptest.NewRecorder()

		newTicketRouter(mockSvc).ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	})

	t.Run("malformed id returns a validation error", func(t *testing.T) {
		mockSvc := mocks.NewMockTicketService()

		req := httptest.NewRequest(stdhttp.MethodGet, "/not-a-uuid", nil)
		rec := httptest.NewRecorder()

		newTicketRouter(mockSvc).ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		mockSvc.AssertNotCalled(t, "GetTicket", mock.Anything, mock.Anything)
	})
}
