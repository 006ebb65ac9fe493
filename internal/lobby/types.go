// Package lobby holds the authoritative in-memory state of the lobby: online
// players, active rooms, the message log and shared files.
package lobby

import "time"

// Player is an online participant. CurrentRoom is empty while the player is
// in the main lobby.
type Player struct {
	Username    string    `json:"username"`
	CurrentRoom string    `json:"currentRoom,omitempty"`
	LoginTime   time.Time `json:"loginTime"`
	Online      bool      `json:"online"`
}

// Room is a named group of players. Members is kept sorted in snapshots.
type Room struct {
	Name        string    `json:"roomName"`
	Members     []string  `json:"players"`
	CreatedBy   string    `json:"createdBy"`
	CreatedTime time.Time `json:"createdTime"`
}

// Message is a chat line. Public messages carry RoomName; private messages
// carry To and have IsPrivate set.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	RoomName  string    `json:"roomName,omitempty"`
	IsPrivate bool      `json:"isPrivate"`
}

// SharedFile is a binary attachment shared in a room. Content is omitted from
// listings and only populated by Store.DownloadFile.
type SharedFile struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	Content    []byte    `json:"content,omitempty"`
	Size       int       `json:"size"`
	SharedBy   string    `json:"sharedBy"`
	RoomName   string    `json:"roomName"`
	SharedTime time.Time `json:"sharedTime"`
	FileType   FileType  `json:"fileType"`
}

// RoomBundle is the full refreshed view of one room.
type RoomBundle struct {
	RoomName string       `json:"roomName"`
	Messages []Message    `json:"messages"`
	Players  []string     `json:"players"`
	Files    []SharedFile `json:"files"`
}

// Stats summarizes store contents.
type Stats struct {
	Players  int `json:"players"`
	Rooms    int `json:"rooms"`
	Messages int `json:"messages"`
	Files    int `json:"files"`
}

// metadata returns a copy of f without its payload.
func (f SharedFile) metadata() SharedFile {
	f.Content = nil
	return f
}
