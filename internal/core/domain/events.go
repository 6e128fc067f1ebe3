package domain

// EventType identifies an outbound real-time event.
type EventType string

const (
	EventAssignedRoom    EventType = "assignedRoom"
	EventAssignedRooms   EventType = "assignedRooms"
	EventNewRoom         EventType = "newRoom"
	EventNewConversation EventType = "newConversation"
	EventMessage         EventType = "message"
	EventStatusUpdated   EventType = "ticketStatusUpdated"
	EventTicketClosed    EventType = "ticketClosed"
	EventUserAssigned    EventType = "userAssignedToConversation"
	EventUserUnassigned  EventType = "userUnassignedFromConversation"
	EventRoomRemoved     EventType = "roomRemoved"
	EventResult          EventType = "result"
)

// Event is the payload pushed over a WebSocket connection. Room carries
// the routing target where relevant; RequestID echoes the client request
// an acknowledgement answers.
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Room      string      `json:"room,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// Result is the acknowledgement payload for request/response style
// client messages.
type Result struct {
	OK      bool        `json:"ok"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatusChange is broadcast when a ticket's status moves.
type StatusChange struct {
	RoomID string       `json:"roomId,omitempty"`
	Status TicketStatus `json:"status"`
}
