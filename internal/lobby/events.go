package lobby

// Event is a state change captured while the store lock was held. Every
// event carries its own snapshot so that it can be delivered after the lock
// is released without re-reading the store.
type Event interface {
	// Audience lists the usernames that must be notified. A nil audience
	// means every current subscriber.
	Audience() []string
}

// RoomListChanged is emitted when a room is created or destroyed, and on
// logout.
type RoomListChanged struct {
	Rooms []Room
}

// PlayerJoined is emitted after Username was added to RoomName. Members is
// the post-join member set, joiner included.
type PlayerJoined struct {
	RoomName string
	Username string
	Members  []string
}

// PlayerLeft is emitted after Username was removed from RoomName. Members
// holds the remaining members.
type PlayerLeft struct {
	RoomName string
	Username string
	Members  []string
}

// RoomDataChanged carries the refreshed bundle for one room; its audience is
// the room's members at capture time.
type RoomDataChanged struct {
	Bundle RoomBundle
}

// PrivateMessageSent is delivered to both ends of a private message.
type PrivateMessageSent struct {
	Message Message
}

func (RoomListChanged) Audience() []string { return nil }

func (e PlayerJoined) Audience() []string { return e.Members }

func (e PlayerLeft) Audience() []string { return e.Members }

func (e RoomDataChanged) Audience() []string { return e.Bundle.Players }

func (e PrivateMessageSent) Audience() []string {
	if e.Message.To == "" || e.Message.To == e.Message.From {
		return []string{e.Message.From}
	}
	return []string{e.Message.From, e.Message.To}
}
