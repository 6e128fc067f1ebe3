package websocket

import (
	"log/slog"
	"sync"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// Hub maintains the set of active Clients, the active chat rooms and the
// agent roster, and fans events out to them.
type Hub struct {
	// clients holds every connected client.
	clients map[*Client]bool

	// agents is the subset of clients registered as support agents.
	// Agents are subscribed to every active room.
	agents map[*Client]bool

	// rooms maps room IDs to subscribed clients (the customer plus any
	// registered agents).
	rooms map[string]map[*Client]bool

	// customerRooms maps a customer connection to the room it owns. A
	// room stays active only while at least one owning customer
	// connection remains.
	customerRooms map[*Client]string

	// broadcast channel for outbound deliveries
	broadcast chan delivery

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the maps above
	mu sync.RWMutex

	// chat and tickets are attached after construction; the hub is built
	// first because the services need it as their broadcaster.
	chat    ports.ChatService
	tickets ports.TicketService

	logger *slog.Logger
}

// delivery is an event plus its routing: either one room's subscribers
// or the full agent roster.
type delivery struct {
	event    domain.Event
	toAgents bool
}

// Ensure Hub implements the RoomBroadcaster interface.
var _ ports.RoomBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		agents:        make(map[*Client]bool),
		rooms:         make(map[string]map[*Client]bool),
		customerRooms: make(map[*Client]string),
		broadcast:     make(chan delivery, 256),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		logger:        logger.With("component", "websocket_hub"),
	}
}

// AttachServices wires the hub's message handlers to the core services.
// Must be called before Run.
func (h *Hub) AttachServices(chat ports.ChatService, tickets ports.TicketService) {
	h.chat = chat
	h.tickets = tickets
}

// ToRoom queues an event for every client subscribed to the room.
// Delivery is best effort; a full hub queue drops the event.
func (h *Hub) ToRoom(roomID string, event domain.Event) {
	event.Room = roomID
	h.enqueue(delivery{event: event})
}

// ToAgents queues an event for every registered agent.
func (h *Hub) ToAgents(event domain.Event) {
	h.enqueue(delivery{event: event, toAgents: true})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.broadcast <- d:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", d.event.Type,
			"room", d.event.Room,
		)
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.logger.Info("client connected",
		"connection_id", client.ConnectionID,
		"total_connections", len(h.clients),
	)
}

// unregisterClient removes a client from the hub and every room. When
// the departing client is the last customer connection owning a room,
// the room is deactivated and each agent receives a roomRemoved event.
// Agent disconnects never deactivate rooms.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	delete(h.agents, client)

	ownedRoom, isCustomer := h.customerRooms[client]
	delete(h.customerRooms, client)

	for _, roomID := range client.Rooms() {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	if isCustomer && h.roomHasNoCustomersLocked(ownedRoom) {
		h.deactivateRoomLocked(ownedRoom)
	}

	client.CloseSend()

	h.logger.Info("client disconnected", "connection_id", client.ConnectionID)
}

// roomHasNoCustomersLocked reports whether no remaining subscriber of the
// room owns it. Caller must hold mu.
func (h *Hub) roomHasNoCustomersLocked(roomID string) bool {
	for other, owned := range h.customerRooms {
		if owned == roomID && h.clients[other] {
			return false
		}
	}
	return true
}

// deactivateRoomLocked drops the room and tells every agent it is gone.
// Caller must hold mu.
func (h *Hub) deactivateRoomLocked(roomID string) {
	if members, ok := h.rooms[roomID]; ok {
		for member := range members {
			member.removeRoom(roomID)
		}
		delete(h.rooms, roomID)
	}

	event := domain.Event{Type: domain.EventRoomRemoved, Payload: roomID, Room: roomID}
	for agent := range h.agents {
		select {
		case agent.Send <- event:
		default:
		}
	}

	h.logger.Info("room deactivated", "room", roomID)
}

// deliver sends an event to its target set without holding the lock
// while writing.
func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	var targets []*Client
	if d.toAgents {
		targets = make([]*Client, 0, len(h.agents))
		for agent := range h.agents {
			targets = append(targets, agent)
		}
	} else if members, ok := h.rooms[d.event.Room]; ok {
		targets = make([]*Client, 0, len(members))
		for member := range members {
			targets = append(targets, member)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.Send <- d.event:
		default:
			h.logger.Warn("client send buffer full, dropping event",
				"connection_id", client.ConnectionID,
				"event_type", d.event.Type,
			)
		}
	}
}

// RegisterAgent marks the client as an agent and subscribes it to every
// active room, returning the room IDs it now belongs to.
func (h *Hub) RegisterAgent(client *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.agents[client] = true

	roomIDs := make([]string, 0, len(h.rooms))
	for roomID, members := range h.rooms {
		members[client] = true
		client.addRoom(roomID)
		roomIDs = append(roomIDs, roomID)
	}

	h.logger.Info("agent registered",
		"connection_id", client.ConnectionID,
		"rooms", len(roomIDs),
	)
	return roomIDs
}

// ActivateRoom subscribes a customer connection to its room, activating
// the room if needed. It reports whether this call activated the room,
// so the caller can roll the activation back if the ticket behind it
// turns out not to exist.
func (h *Hub) ActivateRoom(client *Client, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasNew := h.rooms[roomID] == nil
	if wasNew {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.addRoom(roomID)
	h.customerRooms[client] = roomID

	return wasNew
}

// DeactivateRoom reverses an ActivateRoom call that should not have
// happened: the client leaves the room, and if nothing else subscribed
// in the meantime the room is dropped.
func (h *Hub) DeactivateRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.customerRooms[client] == roomID {
		delete(h.customerRooms, client)
	}
	client.removeRoom(roomID)

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// SubscribeAgents adds every registered agent to the room.
func (h *Hub) SubscribeAgents(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for agent := range h.agents {
		members[agent] = true
		agent.addRoom(roomID)
	}
}

// JoinRooms subscribes the client to each of the requested rooms that is
// currently active and returns the IDs actually joined. A customer
// connection becomes the owner of the last room in the list.
func (h *Hub) JoinRooms(client *Client, roomIDs []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined := make([]string, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		members, ok := h.rooms[roomID]
		if !ok {
			continue
		}
		members[client] = true
		client.addRoom(roomID)
		if !h.agents[client] {
			h.customerRooms[client] = roomID
		}
		joined = append(joined, roomID)
	}
	return joined
}

// RejoinRoom returns the room this customer connection currently owns.
func (h *Hub) RejoinRoom(client *Client) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomID, ok := h.customerRooms[client]
	return roomID, ok
}

// ActiveRooms returns the IDs of all currently active rooms.
func (h *Hub) ActiveRooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AgentCount returns the number of registered agents.
func (h *Hub) AgentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}

// ClientsInRoom returns the number of clients subscribed to a room.
func (h *Hub) ClientsInRoom(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.rooms[roomID]; ok {
		return len(members)
	}
	return 0
}
