package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
)

func TestMessageRepository_CreateAndListByRoom(t *testing.T) {
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")

	ctx := context.Background()
	repo := NewMessageRepository(testPool)
	roomID := "room-" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	created, err := repo.Create(ctx, &domain.Message{
		RoomID:         roomID,
		Sender:         "customer-9",
		Body:           "screenshot attached",
		AttachmentURL:  "https://cdn.example.com/chat_attachments/shot.png",
		AttachmentType: "image/png",
		CreatedAt:      base,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	// Insert out of send order to check the listing sorts by time.
	third, err := repo.Create(ctx, &domain.Message{RoomID: roomID, Sender: "agent", Body: "on it", CreatedAt: base.Add(2 * time.Second)})
	require.NoError(t, err)
	second, err := repo.Create(ctx, &domain.Message{RoomID: roomID, Sender: domain.SystemSender, Body: "Customer has created room " + roomID, CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)

	msgs, err := repo.ListByRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, created.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)
	assert.Equal(t, third.ID, msgs[2].ID)
	assert.Equal(t, "image/png", msgs[0].AttachmentType)
	assert.Equal(t, "https://cdn.example.com/chat_attachments/shot.png", msgs[0].AttachmentURL)

	empty, err := repo.ListByRoom(ctx, "room-empty-"+uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
