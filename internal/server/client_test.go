package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/lobby/internal/notify"
)

func newTestClient(t *testing.T, sendBuffer int) *Client {
	t.Helper()

	cfg := testConfig()
	cfg.SendBuffer = sendBuffer
	hub := NewHub(nil, nil, quietLogger())
	return NewClient(nil, hub, "127.0.0.1:1", cfg)
}

func TestClientSendResults(t *testing.T) {
	c := newTestClient(t, 1)
	require.NotEmpty(t, c.ID())

	assert.Equal(t, notify.Delivered, c.Send(context.Background(), []byte(`{"n":1}`)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, notify.TimedOut, c.Send(ctx, []byte(`{"n":2}`)), "full buffer blocks until the deadline")

	c.close()
	c.close()
	assert.Equal(t, notify.Broken, c.Send(context.Background(), []byte(`{"n":3}`)))

	require.Len(t, c.send, 1)
	assert.Equal(t, []byte(`{"n":1}`), <-c.send)
}

func TestClientBoundUsernames(t *testing.T) {
	c := newTestClient(t, 4)

	c.Bind("misty")
	c.Bind("ash")
	c.Bind("ash")
	assert.Equal(t, []string{"ash", "misty"}, c.Usernames())

	c.Unbind("misty")
	c.Unbind("nobody")
	assert.Equal(t, []string{"ash"}, c.Usernames())
}
