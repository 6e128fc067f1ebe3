package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Attachments ride inside
	// chat messages as encoded payloads, so the limit is generous.
	maxMessageSize = 1 << 20
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound events.
	Send chan domain.Event

	// ConnectionID identifies this connection in logs.
	ConnectionID uuid.UUID

	// Principal is the verified identity behind the connection.
	Principal *domain.Principal

	// handlerTimeout bounds each inbound message handler.
	handlerTimeout time.Duration

	// rooms this connection is subscribed to
	rooms map[string]bool

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// mu protects the rooms map
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub, conn *websocket.Conn, principal *domain.Principal, handlerTimeout time.Duration, logger *slog.Logger) *Client {
	connectionID := uuid.New()
	return &Client{
		Hub:            hub,
		Conn:           conn,
		Send:           make(chan domain.Event, 256),
		ConnectionID:   connectionID,
		Principal:      principal,
		handlerTimeout: handlerTimeout,
		rooms:          make(map[string]bool),
		logger:         logger.With("connection_id", connectionID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *Client) addRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = true
}

func (c *Client) removeRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

// Rooms returns a copy of the rooms this connection is subscribed to.
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		ids = append(ids, roomID)
	}
	return ids
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write event", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the envelope for messages sent from the client.
// RequestID, when present, is echoed back on the acknowledging result
// event.
type ClientMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"requestId,omitempty"`
}

// joinPayload carries the rooms a client wants to (re)join. An empty
// list means "rejoin the room this connection already owns".
type joinPayload struct {
	RoomIDs []string `json:"roomIds"`
}

// createRoomPayload identifies the room to open and the ticket and
// customer behind it.
type createRoomPayload struct {
	RoomID     string    `json:"roomId"`
	TicketID   uuid.UUID `json:"ticketId"`
	CustomerID uuid.UUID `json:"customerId"`
}

// assignPayload targets a conversation with an optional agent.
type assignPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
}

// statusPayload carries a ticket status change.
type statusPayload struct {
	TicketID uuid.UUID           `json:"ticketId"`
	Status   domain.TicketStatus `json:"status"`
	Room     string              `json:"room,omitempty"`
}

// closeTicketPayload carries the combined close-with-feedback request.
type closeTicketPayload struct {
	TicketID uuid.UUID       `json:"ticketId"`
	Room     string          `json:"room,omitempty"`
	Feedback domain.Feedback `json:"feedback"`
}

// handleIncomingMessage dispatches one message received from the client.
// Handler failures answer with a result event; they never close the
// connection.
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "registerAgent":
		c.handleRegisterAgent(msg)

	case "join":
		c.handleJoin(msg)

	case "createRoom":
		c.handleCreateRoom(msg)

	case "message":
		c.handleChatMessage(msg)

	case "assignUser":
		c.handleAssignUser(msg)

	case "unassignUser":
		c.handleUnassignUser(msg)

	case "updateTicketStatus":
		c.handleUpdateTicketStatus(msg)

	case "closeTicket":
		c.handleCloseTicket(msg)

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.handlerTimeout)
}

func (c *Client) handleRegisterAgent(msg ClientMessage) {
	roomIDs := c.Hub.RegisterAgent(c)

	c.send(domain.Event{Type: domain.EventAssignedRooms, Payload: roomIDs})
	c.ack(msg.RequestID, roomIDs)
}

func (c *Client) handleJoin(msg ClientMessage) {
	var p joinPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.fail(msg.RequestID, apperrors.NewValidationError(err, "malformed join payload"))
			return
		}
	}

	if len(p.RoomIDs) > 0 {
		joined := c.Hub.JoinRooms(c, p.RoomIDs)
		c.send(domain.Event{Type: domain.EventAssignedRooms, Payload: joined})
		c.ack(msg.RequestID, joined)
		return
	}

	// No rooms requested: rejoin the room this connection owns, if any.
	roomID, ok := c.Hub.RejoinRoom(c)
	if !ok {
		c.ack(msg.RequestID, nil)
		return
	}
	c.send(domain.Event{Type: domain.EventAssignedRoom, Payload: roomID, Room: roomID})
	c.ack(msg.RequestID, roomID)
}

// handleCreateRoom activates the room, then resolves the ticket and
// conversation. The room registration is rolled back when the lookup
// fails, so a bad ticket ID leaves no trace in the hub.
func (c *Client) handleCreateRoom(msg ClientMessage) {
	var p createRoomPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		c.fail(msg.RequestID, apperrors.NewValidationError(err, "malformed createRoom payload"))
		return
	}
	if p.RoomID == "" {
		c.fail(msg.RequestID, apperrors.ErrRoomIDRequired)
		return
	}

	wasNew := c.Hub.ActivateRoom(c, p.RoomID)

	ctx, cancel := c.handlerContext()
	defer cancel()

	result, err := c.Hub.chat.JoinOrCreateRoom(ctx, ports.JoinRoomParams{
		RoomID:     p.RoomID,
		TicketID:   p.TicketID,
		CustomerID: p.CustomerID,
	})
	if err != nil {
		if wasNew {
			c.Hub.DeactivateRoom(c, p.RoomID)
		}
		c.fail(msg.RequestID, err)
		return
	}

	c.Hub.SubscribeAgents(p.RoomID)
	c.send(domain.Event{Type: domain.EventAssignedRoom, Payload: p.RoomID, Room: p.RoomID})
	c.ack(msg.RequestID, result)

	if result.Created {
		c.Hub.ToAgents(domain.Event{Type: domain.EventNewRoom, Payload: p.RoomID})
		c.Hub.ToAgents(domain.Event{Type: domain.EventNewConversation, Payload: result.Conversation})
		c.Hub.ToRoom(p.RoomID, domain.Event{
			Type: domain.EventMessage,
			Payload: domain.Message{
				RoomID:    p.RoomID,
				Sender:    domain.SystemSender,
				Body:      "Customer has created room " + p.RoomID,
				CreatedAt: time.Now().UTC(),
			},
		})
	}
}

func (c *Client) handleChatMessage(msg ClientMessage) {
	var p domain.Message
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		c.fail(msg.RequestID, apperrors.NewValidationError(err, "malformed message payload"))
		return
	}

	ctx, cancel := c.handlerContext()
	defer cancel()

	saved, err := c.Hub.chat.Relay(ctx, ports.RelayParams{
		RoomID:         p.RoomID,
		Sender:         p.Sender,
		Body:           p.Body,
		Attachment:     p.AttachmentURL,
		AttachmentType: p.AttachmentType,
	})
	if err != nil {
		c.fail(msg.RequestID, err)
		return
	}
	c.ack(msg.RequestID, saved)
}

func (c *Client) handleAssignUser(msg ClientMessage) {
	var p assignPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		c.fail(msg.RequestID, apperrors.NewValidationError(err, "malformed assignUser payload"))
		return
	}

	ctx, cancel := c.handlerContext()
	defer cancel()

	conv, err := c.Hub.chat.AssignAgent(ctx, ports.AssignAgentParams{
		ConversationID: p.ConversationID,
		AgentID:        p.UserID,
	})
	if err != nil {
		c.fail(msg.RequestID, err)
		return
	}
	c.ack(msg.RequestID, conv)
}

func (c *Client) handleUnassignUser(msg ClientMessage) {
	var p assignPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		c.fail(msg.RequestID, apperrors.NewValidationError(err, "malformed unassignUser payload"))
		return
	}

	ctx, cancel := c.handlerContext()
	defer cancel()

	conv, err := c.Hub.chat.UnassignAgent(ctx, p.ConversationID)
	if err != nil {
		c.fail(msg.RequestID, err)
		return
	}
	c.ack(msg.RequestID, conv)
}

func (c *Client) handleUpdateTicketStatus(msg ClientMessage) {
	var p statusPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		c.fail(msg.RequestID, apperrors.NewValidationError(err, "malformed updateTicketStatus payload"))
		return
	}

	ctx, cancel := c.handlerContext()
	defer cancel()

	ticket, err := c.Hub.tickets.UpdateStatus(ctx, ports.UpdateStatusParams{
		TicketID: p.TicketID,
		Status:   p.Status,
		RoomID:   p.Room,
	})
	if err != nil {
		c.fail(msg.RequestID, err)
		return
	}
	c.ack(msg.RequestID, ticket)
}

func (c *Client) handleCloseTicket(msg ClientMessage) {
	var p closeTicketPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		c.fail(msg.RequestID, apperrors.NewValidationError(err, "malformed closeTicket payload"))
		return
	}

	ctx, cancel := c.handlerContext()
	defer cancel()

	result, err := c.Hub.chat.CloseTicketWithFeedback(ctx, ports.CloseTicketParams{
		TicketID: p.TicketID,
		RoomID:   p.Room,
		Feedback: p.Feedback,
	})
	if err != nil {
		c.fail(msg.RequestID, err)
		return
	}
	c.ack(msg.RequestID, result)
}

// send queues an event directly to this connection, dropping it when the
// buffer is full.
func (c *Client) send(event domain.Event) {
	select {
	case c.Send <- event:
	default:
		c.logger.Warn("send buffer full, dropping event", "event_type", event.Type)
	}
}

// ack answers a request with a successful result event.
func (c *Client) ack(requestID string, payload interface{}) {
	if requestID == "" {
		return
	}
	c.send(domain.Event{
		Type:      domain.EventResult,
		RequestID: requestID,
		Payload:   domain.Result{OK: true, Payload: payload},
	})
}

// fail answers a request with a failed result event. Without a request
// ID the error is only logged.
func (c *Client) fail(requestID string, err error) {
	c.logger.Warn("handler failed", "error", err)
	if requestID == "" {
		return
	}
	c.send(domain.Event{
		Type:      domain.EventResult,
		RequestID: requestID,
		Payload:   domain.Result{OK: false, Error: err.Error(), Code: apperrors.Code(err)},
	})
}
