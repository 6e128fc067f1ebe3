package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// ConversationHandler handles the read-side conversation listings
type ConversationHandler struct {
	queryService ports.ConversationQueryService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(
	queryService ports.ConversationQueryService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		queryService: queryService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "conversation"),
	}
}

// RegisterRoutes sets up the routing for all conversation endpoints.
func (h *ConversationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListConversations)
	r.Get("/{customerID}", h.HandleListByCustomer)
}

// HandleListConversations handles GET /api/v1/conversations
func (h *ConversationHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	views, err := h.queryService.ListConversations(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, views)
}

// HandleListByCustomer handles GET /api/v1/conversations/{customerID}
func (h *ConversationHandler) HandleListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err, "Invalid customer ID"))
		return
	}

	views, err := h.queryService.ListByCustomer(r.Context(), customerID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, views)
}
