package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/lobby/internal/lobby"
	"github.com/Tyrowin/lobby/internal/notify"
)

type fakeSession struct {
	mu     sync.Mutex
	frames []map[string]any
	bound  map[string]bool
	broken bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{bound: make(map[string]bool)}
}

func (s *fakeSession) Send(_ context.Context, frame []byte) notify.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return notify.Broken
	}
	var m map[string]any
	if err := json.Unmarshal(frame, &m); err != nil {
		return notify.Broken
	}
	s.frames = append(s.frames, m)
	return notify.Delivered
}

func (s *fakeSession) Bind(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound[username] = true
}

func (s *fakeSession) Unbind(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bound, username)
}

func (s *fakeSession) pushes() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.frames...)
}

func (s *fakeSession) pushTypes() []string {
	var out []string
	for _, f := range s.pushes() {
		out = append(out, f["type"].(string))
	}
	return out
}

func (s *fakeSession) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc      *Service
	registry *notify.Registry
}

func newFixture() fixture {
	logger := quietLogger()
	registry := notify.NewRegistry()
	engine := notify.NewEngine(registry, notify.WithEngineLogger(logger))
	store := lobby.NewStore(lobby.WithLogger(logger))
	return fixture{svc: NewService(store, registry, engine, logger), registry: registry}
}

// online logs username in and subscribes a fresh session for it.
func (f fixture) online(t *testing.T, username string) *fakeSession {
	t.Helper()
	ok, err := f.svc.Login(context.Background(), username)
	require.NoError(t, err)
	require.True(t, ok)
	session := newFakeSession()
	require.NoError(t, f.svc.Subscribe(context.Background(), username, session))
	return session
}

func TestServiceLoginValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ok, err := f.svc.Login(ctx, "ash")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Login(ctx, "ash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceCreateRoomBroadcastsRoomList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")
	brock := f.online(t, "brock")

	ok, err := f.svc.CreateRoom(ctx, "pit", "ash", "ash")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"roomListUpdated"}, ash.pushTypes())
	assert.Equal(t, []string{"roomListUpdated"}, brock.pushTypes())

	ok, err = f.svc.CreateRoom(ctx, "pit", "brock", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, brock.pushes(), 1, "failed create pushes nothing")

	_, err = f.svc.CreateRoom(ctx, "gym", "brock", "ash")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestServiceJoinNotifiesRoomMembers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")
	brock := f.online(t, "brock")
	misty := f.online(t, "misty")

	_, err := f.svc.CreateRoom(ctx, "pit", "ash", "ash")
	require.NoError(t, err)
	ash.reset()
	brock.reset()
	misty.reset()

	ok, err := f.svc.JoinRoom(ctx, "pit", "brock")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"playerJoinedRoom", "roomDataUpdated"}, ash.pushTypes())
	assert.Equal(t, []string{"playerJoinedRoom", "roomDataUpdated"}, brock.pushTypes())
	assert.Empty(t, misty.pushTypes(), "non-members are not told about joins")

	joined := ash.pushes()[0]
	assert.Equal(t, "pit", joined["roomName"])
	assert.Equal(t, "brock", joined["username"])
}

func TestServiceLeaveNotifiesRemainingMembers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")
	brock := f.online(t, "brock")

	_, err := f.svc.CreateRoom(ctx, "pit", "ash", "")
	require.NoError(t, err)
	_, err = f.svc.JoinRoom(ctx, "pit", "brock")
	require.NoError(t, err)
	ash.reset()
	brock.reset()

	require.NoError(t, f.svc.LeaveRoom(ctx, "ash"))
	assert.Equal(t, []string{"playerLeftRoom", "roomDataUpdated"}, brock.pushTypes())
	assert.Empty(t, ash.pushTypes())

	brock.reset()
	require.NoError(t, f.svc.LeaveRoom(ctx, "brock"))
	assert.Equal(t, []string{"roomListUpdated"}, ash.pushTypes())
	assert.Equal(t, []string{"roomListUpdated"}, brock.pushTypes())
	assert.Empty(t, f.svc.AvailableRooms())
}

func TestServiceMessaging(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")
	brock := f.online(t, "brock")
	misty := f.online(t, "misty")

	_, err := f.svc.CreateRoom(ctx, "pit", "ash", "")
	require.NoError(t, err)
	_, err = f.svc.JoinRoom(ctx, "pit", "brock")
	require.NoError(t, err)
	ash.reset()
	brock.reset()
	misty.reset()

	_, err = f.svc.SendMessage(ctx, lobby.Message{From: "ash", RoomName: "pit", Content: "   "})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.SendMessage(ctx, lobby.Message{From: "ash", Content: "hi", IsPrivate: true})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.SendMessage(ctx, lobby.Message{From: "ash", Content: "hi"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	public, err := f.svc.SendMessage(ctx, lobby.Message{From: "ash", RoomName: "pit", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"roomDataUpdated"}, ash.pushTypes())
	assert.Equal(t, []string{"roomDataUpdated"}, brock.pushTypes())
	assert.Empty(t, misty.pushTypes())

	private, err := f.svc.SendMessage(ctx, lobby.Message{From: "ash", To: "brock", Content: "hi", IsPrivate: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"roomDataUpdated", "privateMessageReceived"}, ash.pushTypes())
	assert.Equal(t, []string{"roomDataUpdated", "privateMessageReceived"}, brock.pushTypes())
	assert.Empty(t, misty.pushTypes())

	assert.Equal(t, []lobby.Message{public}, f.svc.RoomMessages("pit"))
	assert.Equal(t, []lobby.Message{private}, f.svc.PrivateMessages("ash"))
	assert.Equal(t, []lobby.Message{private}, f.svc.PrivateMessages("brock"))
}

func TestServiceFileSharing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")

	_, err := f.svc.CreateRoom(ctx, "pit", "ash", "")
	require.NoError(t, err)
	ash.reset()

	_, err = f.svc.ShareFile(ctx, lobby.SharedFile{FileName: "", RoomName: "pit", SharedBy: "ash"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ok, err := f.svc.ShareFile(ctx, lobby.SharedFile{FileName: "map.png", RoomName: "pit", SharedBy: "ash", Content: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"roomDataUpdated"}, ash.pushTypes())

	files := f.svc.SharedFiles("pit")
	require.Len(t, files, 1)
	assert.Equal(t, lobby.FileTypeImage, files[0].FileType)
	assert.Nil(t, files[0].Content)

	got, ok := f.svc.DownloadFile("map.png", "pit")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got.Content)

	_, ok = f.svc.DownloadFile("map.png", "gym")
	assert.False(t, ok)
}

func TestServiceLogoutRemovesSubscription(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")
	brock := f.online(t, "brock")

	require.NoError(t, f.svc.Logout(ctx, "ash"))
	_, ok := f.registry.Lookup("ash")
	assert.False(t, ok)
	assert.Equal(t, []string{"brock"}, f.svc.OnlinePlayers())
	assert.Empty(t, ash.pushTypes(), "logged out player is not notified")
	assert.Equal(t, []string{"roomListUpdated"}, brock.pushTypes())

	require.NoError(t, f.svc.Logout(ctx, "ash"), "logout of an offline player is a no-op")
}

func TestServiceBrokenSubscriberIsEvicted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")
	brock := f.online(t, "brock")
	misty := f.online(t, "misty")

	_, err := f.svc.CreateRoom(ctx, "pit", "ash", "")
	require.NoError(t, err)
	for _, name := range []string{"brock", "misty"} {
		_, err = f.svc.JoinRoom(ctx, "pit", name)
		require.NoError(t, err)
	}
	ash.reset()
	misty.reset()

	brock.mu.Lock()
	brock.broken = true
	brock.mu.Unlock()

	_, err = f.svc.SendMessage(ctx, lobby.Message{From: "ash", RoomName: "pit", Content: "still there?"})
	require.NoError(t, err)

	assert.Equal(t, []string{"roomDataUpdated"}, ash.pushTypes())
	assert.Equal(t, []string{"roomDataUpdated"}, misty.pushTypes())
	_, ok := f.registry.Lookup("brock")
	assert.False(t, ok)
	assert.Contains(t, f.svc.PlayersInRoom("pit"), "brock", "eviction does not touch lobby state")
}

func TestServiceDisconnectLogsOutOwnedNames(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ash := f.online(t, "ash")
	brock := f.online(t, "brock")

	_, err := f.svc.CreateRoom(ctx, "pit", "ash", "")
	require.NoError(t, err)

	// brock's name has been taken over by another connection.
	f.svc.Disconnect(ctx, ash, []string{"ash", "brock"})

	assert.Equal(t, []string{"brock"}, f.svc.OnlinePlayers())
	assert.Empty(t, f.svc.AvailableRooms())
	_, ok := f.registry.Lookup("brock")
	assert.True(t, ok)
	assert.Contains(t, brock.pushTypes(), "roomListUpdated")
}

func TestServiceStats(t *testing.T) {
	f := newFixture()
	f.online(t, "ash")

	stats := f.svc.Stats()
	assert.Equal(t, 1, stats.Players)
	assert.Equal(t, 1, stats.Subscribers)
}
