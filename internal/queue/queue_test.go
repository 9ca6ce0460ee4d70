package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublish(t *testing.T) {
	q := NewInMemory(2)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, Message{Type: "cam_event", Body: []byte("a")}))
	require.NoError(t, q.Publish(ctx, Message{Type: "cam_event", Body: []byte("b")}))
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "cam_event", Body: []byte("c")}), ErrFull)

	first := <-q.Messages()
	assert.Equal(t, "a", string(first.Body))
	require.NoError(t, q.Publish(ctx, Message{Type: "cam_event", Body: []byte("c")}))
}

func TestInMemoryPublishCancelled(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{}), context.Canceled)
}

func TestEncodeDecode(t *testing.T) {
	msg := Message{Type: "cam_event", Body: []byte(`{"note":"a|b"}`)}
	assert.Equal(t, msg, Decode(Encode(msg)))
	assert.Equal(t, Message{Body: []byte("raw")}, Decode("raw"))
}
