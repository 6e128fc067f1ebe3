package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single chat message. Messages are immutable once
// persisted and are referenced, never embedded, by their conversation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	RoomID         string    `json:"room"`
	Sender         string    `json:"sender"`
	Body           string    `json:"message"`
	AttachmentURL  string    `json:"attachment,omitempty"`
	AttachmentType string    `json:"attachmentType,omitempty"`
	CreatedAt      time.Time `json:"timestamp"`
}

// SystemSender is the sender name used for room join notices.
const SystemSender = "System"
