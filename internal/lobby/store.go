package lobby

import (
	"bytes"
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns every Player, Room, Message and SharedFile record. All fields
// are guarded by a single mutex; each exported method is one atomic unit.
// Mutating methods return the events produced by the change, already
// captured from the post-mutation state.
type Store struct {
	mu       sync.Mutex
	players  map[string]*Player
	rooms    map[string]*room
	messages []Message
	files    []SharedFile
	last     time.Time

	clock  func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for server-side stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithIDGenerator overrides the generator for message and file ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		players: make(map[string]*Player),
		rooms:   make(map[string]*room),
		clock:   time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// changeSet accumulates the events of one mutation.
type changeSet struct {
	events       []Event
	roomsChanged bool
}

func (c *changeSet) add(e Event) {
	c.events = append(c.events, e)
}

// commitLocked appends the room list snapshot, once, when the set of rooms
// changed during the mutation.
func (s *Store) commitLocked(c *changeSet) []Event {
	if c.roomsChanged {
		c.add(RoomListChanged{Rooms: s.roomsLocked()})
	}
	return c.events
}

// stampLocked returns a server timestamp that never goes backwards relative
// to the previous stamp.
func (s *Store) stampLocked() time.Time {
	t := s.clock()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}

// Login reserves username. It returns false when the name is already online.
func (s *Store) Login(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[username]; exists {
		return false
	}
	s.players[username] = &Player{
		Username:  username,
		LoginTime: s.clock(),
		Online:    true,
	}
	s.logger.Info("player logged in", "username", username, "online", len(s.players))
	return true
}

// Logout removes username, leaving its room first. It reports whether the
// player was online.
func (s *Store) Logout(username string) ([]Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[username]
	if !ok {
		return nil, false
	}

	var c changeSet
	s.leaveLocked(p, &c)
	delete(s.players, username)
	c.roomsChanged = true
	s.logger.Info("player logged out", "username", username, "online", len(s.players))
	return s.commitLocked(&c), true
}

// CreateRoom creates name with creator as its sole initial member. It fails
// when the room exists or the creator is not online.
func (s *Store) CreateRoom(name, creator string) ([]Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[name]; exists {
		return nil, false
	}
	p, ok := s.players[creator]
	if !ok {
		return nil, false
	}

	var c changeSet
	s.leaveLocked(p, &c)
	r := newRoom(name, creator, s.clock())
	s.rooms[name] = r
	s.enterLocked(p, r)
	c.roomsChanged = true
	s.logger.Info("room created", "room", name, "created_by", creator)
	return s.commitLocked(&c), true
}

// JoinRoom moves username into name, leaving any current room first. It
// fails when either the room or the player is absent.
func (s *Store) JoinRoom(name, username string) ([]Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[name]
	if !exists {
		return nil, false
	}
	p, ok := s.players[username]
	if !ok {
		return nil, false
	}
	// Leaving first would delete a room whose only member is rejoining it.
	if p.CurrentRoom == name {
		return nil, true
	}

	var c changeSet
	s.leaveLocked(p, &c)
	s.enterLocked(p, r)
	c.add(PlayerJoined{RoomName: name, Username: username, Members: r.memberList()})
	c.add(RoomDataChanged{Bundle: s.bundleLocked(name)})
	return s.commitLocked(&c), true
}

// LeaveRoom removes username from its current room. It is a no-op when the
// player is unknown or not in a room.
func (s *Store) LeaveRoom(username string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[username]
	if !ok {
		return nil
	}
	var c changeSet
	s.leaveLocked(p, &c)
	return s.commitLocked(&c)
}

// SendMessage stamps msg with an id and the server time and appends it to
// the log. Content is not validated here.
func (s *Store) SendMessage(msg Message) (Message, []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = s.newID()
	msg.Timestamp = s.stampLocked()
	if msg.IsPrivate {
		msg.RoomName = ""
	} else {
		msg.To = ""
	}
	s.messages = append(s.messages, msg)

	var c changeSet
	if msg.IsPrivate {
		c.add(PrivateMessageSent{Message: msg})
		s.logger.Debug("private message stored", "from", msg.From, "to", msg.To)
	} else {
		c.add(RoomDataChanged{Bundle: s.bundleLocked(msg.RoomName)})
		s.logger.Debug("room message stored", "from", msg.From, "room", msg.RoomName)
	}
	return msg, s.commitLocked(&c)
}

// ShareFile stamps and classifies file and appends it to the file log. The
// payload is copied so later changes by the caller are not observed. The
// returned record omits the content.
func (s *Store) ShareFile(file SharedFile) (SharedFile, []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file.ID = s.newID()
	file.Content = bytes.Clone(file.Content)
	file.Size = len(file.Content)
	file.FileType = ClassifyFile(file.FileName)
	file.SharedTime = s.stampLocked()
	s.files = append(s.files, file)

	s.logger.Info("file shared",
		"file", file.FileName,
		"room", file.RoomName,
		"shared_by", file.SharedBy,
		"size", file.Size)

	var c changeSet
	c.add(RoomDataChanged{Bundle: s.bundleLocked(file.RoomName)})
	return file.metadata(), s.commitLocked(&c)
}

// OnlinePlayers returns the usernames of all online players, sorted.
func (s *Store) OnlinePlayers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.players))
	for name := range s.players {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Player returns a copy of the record for username.
func (s *Store) Player(username string) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[username]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Rooms returns a snapshot of every active room ordered by creation time.
func (s *Store) Rooms() []Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomsLocked()
}

// PlayersInRoom returns the sorted members of name, or an empty slice.
func (s *Store) PlayersInRoom(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.membersLocked(name)
}

// RoomMessages returns the public messages of name in ascending time order.
func (s *Store) RoomMessages(name string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomMessagesLocked(name)
}

// PrivateMessages returns the private messages sent by or to username in
// ascending time order.
func (s *Store) PrivateMessages(username string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Message{}
	for _, m := range s.messages {
		if m.IsPrivate && (m.From == username || m.To == username) {
			out = append(out, m)
		}
	}
	return out
}

// FilesInRoom returns metadata for the files shared in name in ascending
// time order.
func (s *Store) FilesInRoom(name string) []SharedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filesLocked(name)
}

// DownloadFile returns the most recent file called fileName shared in
// roomName, payload included.
func (s *Store) DownloadFile(fileName, roomName string) (SharedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.files) - 1; i >= 0; i-- {
		f := s.files[i]
		if f.FileName == fileName && f.RoomName == roomName {
			f.Content = bytes.Clone(f.Content)
			return f, true
		}
	}
	return SharedFile{}, false
}

// Bundle returns the refreshed view of one room.
func (s *Store) Bundle(name string) RoomBundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bundleLocked(name)
}

// Stats returns record counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Players:  len(s.players),
		Rooms:    len(s.rooms),
		Messages: len(s.messages),
		Files:    len(s.files),
	}
}

func (s *Store) roomsLocked() []Room {
	rooms := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r.snapshot())
	}
	slices.SortFunc(rooms, func(a, b Room) int {
		if c := a.CreatedTime.Compare(b.CreatedTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return rooms
}

func (s *Store) membersLocked(name string) []string {
	r, ok := s.rooms[name]
	if !ok {
		return []string{}
	}
	return r.memberList()
}

func (s *Store) roomMessagesLocked(name string) []Message {
	out := []Message{}
	for _, m := range s.messages {
		if !m.IsPrivate && m.RoomName == name {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) filesLocked(name string) []SharedFile {
	out := []SharedFile{}
	for _, f := range s.files {
		if f.RoomName == name {
			out = append(out, f.metadata())
		}
	}
	return out
}

func (s *Store) bundleLocked(name string) RoomBundle {
	return RoomBundle{
		RoomName: name,
		Messages: s.roomMessagesLocked(name),
		Players:  s.membersLocked(name),
		Files:    s.filesLocked(name),
	}
}
