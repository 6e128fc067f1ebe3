package websocket

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.DiscardHandler))
}

// newTestClient builds a client without a live connection. The hub only
// touches the Send channel, so this is enough for hub behavior tests.
func newTestClient(hub *Hub) *Client {
	return &Client{
		Hub:          hub,
		Send:         make(chan domain.Event, 16),
		ConnectionID: uuid.New(),
		rooms:        make(map[string]bool),
		logger:       slog.New(slog.DiscardHandler),
	}
}

func drainEvents(t *testing.T, c *Client) []domain.Event {
	t.Helper()
	var events []domain.Event
	for {
		select {
		case ev := <-c.Send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestHub_ActivateRoom(t *testing.T) {
	t.Run("first activation reports new", func(t *testing.T) {
		hub := newTestHub()
		customer := newTestClient(hub)

		assert.True(t, hub.ActivateRoom(customer, "room-1"))
		assert.Equal(t, 1, hub.ClientsInRoom("room-1"))
	})

	t.Run("second activation of same room is not new", func(t *testing.T) {
		hub := newTestHub()
		first := newTestClient(hub)
		second := newTestClient(hub)

		require.True(t, hub.ActivateRoom(first, "room-1"))
		assert.False(t, hub.ActivateRoom(second, "room-1"))
		assert.Equal(t, 2, hub.ClientsInRoom("room-1"))
	})

	t.Run("deactivate rolls a new activation back", func(t *testing.T) {
		hub := newTestHub()
		customer := newTestClient(hub)

		require.True(t, hub.ActivateRoom(customer, "room-1"))
		hub.DeactivateRoom(customer, "room-1")

		assert.Equal(t, 0, hub.ClientsInRoom("room-1"))
		assert.Empty(t, hub.ActiveRooms())
		_, owns := hub.RejoinRoom(customer)
		assert.False(t, owns)

		// The room can be activated fresh again.
		assert.True(t, hub.ActivateRoom(customer, "room-1"))
	})
}

func TestHub_RegisterAgent(t *testing.T) {
	hub := newTestHub()

	c1 := newTestClient(hub)
	c2 := newTestClient(hub)
	hub.ActivateRoom(c1, "room-1")
	hub.ActivateRoom(c2, "room-2")

	agent := newTestClient(hub)
	roomIDs := hub.RegisterAgent(agent)

	assert.ElementsMatch(t, []string{"room-1", "room-2"}, roomIDs)
	assert.Equal(t, 1, hub.AgentCount())
	assert.Equal(t, 2, hub.ClientsInRoom("room-1"))
	assert.ElementsMatch(t, []string{"room-1", "room-2"}, agent.Rooms())
}

func TestHub_SubscribeAgents(t *testing.T) {
	hub := newTestHub()

	agent := newTestClient(hub)
	hub.RegisterAgent(agent)

	customer := newTestClient(hub)
	hub.ActivateRoom(customer, "room-1")
	hub.SubscribeAgents("room-1")

	assert.Equal(t, 2, hub.ClientsInRoom("room-1"))
	assert.Contains(t, agent.Rooms(), "room-1")
}

func TestHub_JoinRooms(t *testing.T) {
	hub := newTestHub()

	owner := newTestClient(hub)
	hub.ActivateRoom(owner, "room-1")

	t.Run("joins only active rooms", func(t *testing.T) {
		joiner := newTestClient(hub)
		joined := hub.JoinRooms(joiner, []string{"room-1", "room-missing"})

		assert.Equal(t, []string{"room-1"}, joined)
		roomID, ok := hub.RejoinRoom(joiner)
		require.True(t, ok)
		assert.Equal(t, "room-1", roomID)
	})

	t.Run("no active rooms joins nothing", func(t *testing.T) {
		joiner := newTestClient(hub)
		assert.Empty(t, hub.JoinRooms(joiner, []string{"room-missing"}))
	})
}

func TestHub_DeliverToRoom(t *testing.T) {
	hub := newTestHub()

	inRoom := newTestClient(hub)
	outOfRoom := newTestClient(hub)
	hub.ActivateRoom(inRoom, "room-1")
	hub.ActivateRoom(outOfRoom, "room-2")

	hub.ToRoom("room-1", domain.Event{Type: domain.EventMessage, Payload: "hello"})
	hub.deliver(<-hub.broadcast)

	events := drainEvents(t, inRoom)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventMessage, events[0].Type)
	assert.Equal(t, "room-1", events[0].Room)

	assert.Empty(t, drainEvents(t, outOfRoom))
}

func TestHub_DeliverToAgents(t *testing.T) {
	hub := newTestHub()

	agent := newTestClient(hub)
	hub.RegisterAgent(agent)
	customer := newTestClient(hub)
	hub.ActivateRoom(customer, "room-1")

	hub.ToAgents(domain.Event{Type: domain.EventNewRoom, Payload: "room-1"})
	hub.deliver(<-hub.broadcast)

	events := drainEvents(t, agent)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNewRoom, events[0].Type)

	assert.Empty(t, drainEvents(t, customer))
}

func TestHub_UnregisterCustomer(t *testing.T) {
	t.Run("last customer leaving removes room and notifies agents", func(t *testing.T) {
		hub := newTestHub()

		agent := newTestClient(hub)
		hub.RegisterAgent(agent)

		customer := newTestClient(hub)
		hub.registerClient(customer)
		hub.ActivateRoom(customer, "room-1")
		hub.SubscribeAgents("room-1")

		hub.unregisterClient(customer)

		assert.Empty(t, hub.ActiveRooms())
		assert.NotContains(t, agent.Rooms(), "room-1")

		events := drainEvents(t, agent)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventRoomRemoved, events[0].Type)
		assert.Equal(t, "room-1", events[0].Payload)
	})

	t.Run("room survives while another customer connection owns it", func(t *testing.T) {
		hub := newTestHub()

		agent := newTestClient(hub)
		hub.RegisterAgent(agent)

		first := newTestClient(hub)
		second := newTestClient(hub)
		hub.registerClient(first)
		hub.registerClient(second)
		hub.ActivateRoom(first, "room-1")
		hub.ActivateRoom(second, "room-1")

		hub.unregisterClient(first)

		assert.Contains(t, hub.ActiveRooms(), "room-1")
		assert.Empty(t, drainEvents(t, agent))
	})

	t.Run("agent disconnect never deactivates rooms", func(t *testing.T) {
		hub := newTestHub()

		agent := newTestClient(hub)
		hub.registerClient(agent)
		hub.RegisterAgent(agent)

		customer := newTestClient(hub)
		hub.registerClient(customer)
		hub.ActivateRoom(customer, "room-1")
		hub.SubscribeAgents("room-1")

		hub.unregisterClient(agent)

		assert.Contains(t, hub.ActiveRooms(), "room-1")
		assert.Equal(t, 0, hub.AgentCount())
		assert.Equal(t, 1, hub.ClientsInRoom("room-1"))
	})
}

func TestHub_RunLoop(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	client := newTestClient(hub)
	hub.Register <- client

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Unregister <- client

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	// Unregister closed the send channel.
	_, open := <-client.Send
	assert.False(t, open)
}
