package queue

import (
	"testing"

	"moviemate/app/service/conversation"
	"moviemate/app/service/flow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAndClose(t *testing.T) {
	svc := NewService(4)

	svc.Render(conversation.View{ConversationID: "a", State: flow.StateStart})
	svc.Close("a")

	msg := <-svc.Channel()
	require.NotNil(t, msg.View)
	assert.Equal(t, "a", msg.ConversationID)
	assert.Equal(t, flow.StateStart, msg.View.State)
	assert.False(t, msg.Close)

	msg = <-svc.Channel()
	assert.Nil(t, msg.View)
	assert.True(t, msg.Close)
}

func TestAddDropsWhenFull(t *testing.T) {
	svc := NewService(1)

	svc.Close("a")
	svc.Close("b")

	msg := <-svc.Channel()
	assert.Equal(t, "a", msg.ConversationID)

	select {
	case msg = <-svc.Channel():
		t.Fatalf("unexpected message %v", msg)
	default:
	}
}

func TestAddAfterShutdown(t *testing.T) {
	svc := NewService(1)
	require.NoError(t, svc.Shutdown())

	assert.NotPanics(t, func() {
		svc.Close("a")
	})

	_, ok := <-svc.Channel()
	assert.False(t, ok)
}
