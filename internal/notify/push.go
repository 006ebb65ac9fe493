package notify

import (
	"encoding/json"
	"fmt"

	"github.com/Tyrowin/lobby/internal/lobby"
)

// PushType names a server-initiated frame.
type PushType string

const (
	RoomListUpdated        PushType = "roomListUpdated"
	RoomDataUpdated        PushType = "roomDataUpdated"
	PrivateMessageReceived PushType = "privateMessageReceived"
	PlayerJoinedRoom       PushType = "playerJoinedRoom"
	PlayerLeftRoom         PushType = "playerLeftRoom"
)

type roomListFrame struct {
	Type  PushType     `json:"type"`
	Rooms []lobby.Room `json:"rooms"`
}

type roomDataFrame struct {
	Type PushType `json:"type"`
	lobby.RoomBundle
}

type privateMessageFrame struct {
	Type    PushType      `json:"type"`
	Message lobby.Message `json:"message"`
}

type playerFrame struct {
	Type     PushType `json:"type"`
	RoomName string   `json:"roomName"`
	Username string   `json:"username"`
}

// Encode renders e as a push frame.
func Encode(e lobby.Event) ([]byte, error) {
	var frame any
	switch ev := e.(type) {
	case lobby.RoomListChanged:
		frame = roomListFrame{Type: RoomListUpdated, Rooms: ev.Rooms}
	case lobby.RoomDataChanged:
		frame = roomDataFrame{Type: RoomDataUpdated, RoomBundle: ev.Bundle}
	case lobby.PrivateMessageSent:
		frame = privateMessageFrame{Type: PrivateMessageReceived, Message: ev.Message}
	case lobby.PlayerJoined:
		frame = playerFrame{Type: PlayerJoinedRoom, RoomName: ev.RoomName, Username: ev.Username}
	case lobby.PlayerLeft:
		frame = playerFrame{Type: PlayerLeftRoom, RoomName: ev.RoomName, Username: ev.Username}
	default:
		return nil, fmt.Errorf("notify: unsupported event %T", e)
	}
	return json.Marshal(frame)
}
