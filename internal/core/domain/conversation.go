package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
)

// Resolved values accepted in feedback.
const (
	FeedbackResolvedYes = "Yes"
	FeedbackResolvedNo  = "No"
)

// Feedback is the customer's closing assessment of a conversation.
type Feedback struct {
	Rating   int    `json:"rating"`
	Resolved string `json:"resolved"`
	Comments string `json:"comments"`
}

// Validate checks the feedback ranges. Comments are free text.
func (f Feedback) Validate() error {
	if f.Rating < 1 || f.Rating > 5 {
		return apperrors.ErrInvalidRating
	}
	if f.Resolved != FeedbackResolvedYes && f.Resolved != FeedbackResolvedNo {
		return apperrors.ErrInvalidResolved
	}
	return nil
}

// Conversation links a chat room to its ticket, the initiating customer,
// an optionally assigned agent and the ordered history of message
// references. The room identifier uniquely and permanently identifies
// exactly one conversation.
type Conversation struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     string      `json:"roomId"`
	TicketID   uuid.UUID   `json:"ticketId"`
	CustomerID uuid.UUID   `json:"customerId"`
	AgentID    *uuid.UUID  `json:"userId,omitempty"`
	MessageIDs []uuid.UUID `json:"messages"`
	Feedback   *Feedback   `json:"feedback,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}
