// Package api is the request surface of the lobby. Each Service method maps
// onto one Store operation followed by at most one fan-out dispatch of the
// events that operation produced.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Tyrowin/lobby/internal/lobby"
	"github.com/Tyrowin/lobby/internal/notify"
)

// Service ties the store to the notification engine.
type Service struct {
	store    *lobby.Store
	registry *notify.Registry
	engine   *notify.Engine
	logger   *slog.Logger
}

// NewService creates a Service. The engine must deliver through registry.
func NewService(store *lobby.Store, registry *notify.Registry, engine *notify.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		registry: registry,
		engine:   engine,
		logger:   logger,
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required: %w", field, ErrInvalidArgument)
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, events []lobby.Event) {
	if len(events) == 0 {
		return
	}
	report := s.engine.Dispatch(ctx, events...)
	s.logger.Debug("events dispatched",
		"events", len(events),
		"delivered", report.Delivered,
		"failed", report.Failed,
		"skipped", report.Skipped)
}

// Login reserves username. It reports false when the name is taken.
func (s *Service) Login(_ context.Context, username string) (bool, error) {
	if err := required("username", username); err != nil {
		return false, err
	}
	return s.store.Login(username), nil
}

// Logout removes the player and its subscription, then tells every
// subscriber about the resulting room list.
func (s *Service) Logout(ctx context.Context, username string) error {
	if err := required("username", username); err != nil {
		return err
	}
	events, _ := s.store.Logout(username)
	s.registry.Unsubscribe(username)
	s.dispatch(ctx, events)
	return nil
}

// OnlinePlayers lists online usernames.
func (s *Service) OnlinePlayers() []string {
	return s.store.OnlinePlayers()
}

// CreateRoom creates roomName with createdBy as its only member. username is
// accepted for compatibility and must be empty or equal to createdBy.
func (s *Service) CreateRoom(ctx context.Context, roomName, createdBy, username string) (bool, error) {
	if err := required("roomName", roomName); err != nil {
		return false, err
	}
	if err := required("createdBy", createdBy); err != nil {
		return false, err
	}
	if username != "" && username != createdBy {
		return false, fmt.Errorf("username %q must match createdBy %q: %w", username, createdBy, ErrInvalidArgument)
	}

	events, ok := s.store.CreateRoom(roomName, createdBy)
	if !ok {
		return false, nil
	}
	s.dispatch(ctx, events)
	return true, nil
}

// AvailableRooms lists active rooms.
func (s *Service) AvailableRooms() []lobby.Room {
	return s.store.Rooms()
}

// JoinRoom moves username into roomName.
func (s *Service) JoinRoom(ctx context.Context, roomName, username string) (bool, error) {
	if err := required("roomName", roomName); err != nil {
		return false, err
	}
	if err := required("username", username); err != nil {
		return false, err
	}

	events, ok := s.store.JoinRoom(roomName, username)
	if !ok {
		return false, nil
	}
	s.dispatch(ctx, events)
	return true, nil
}

// LeaveRoom removes username from its current room.
func (s *Service) LeaveRoom(ctx context.Context, username string) error {
	if err := required("username", username); err != nil {
		return err
	}
	s.dispatch(ctx, s.store.LeaveRoom(username))
	return nil
}

// PlayersInRoom lists the members of roomName.
func (s *Service) PlayersInRoom(roomName string) []string {
	return s.store.PlayersInRoom(roomName)
}

// SendMessage validates and stores msg, then notifies the room or both
// ends of a private conversation.
func (s *Service) SendMessage(ctx context.Context, msg lobby.Message) (lobby.Message, error) {
	if err := required("from", msg.From); err != nil {
		return lobby.Message{}, err
	}
	if err := required("content", msg.Content); err != nil {
		return lobby.Message{}, err
	}
	if msg.IsPrivate {
		if err := required("to", msg.To); err != nil {
			return lobby.Message{}, err
		}
	} else if err := required("roomName", msg.RoomName); err != nil {
		return lobby.Message{}, err
	}

	stored, events := s.store.SendMessage(msg)
	s.dispatch(ctx, events)
	return stored, nil
}

// RoomMessages lists the public messages of roomName.
func (s *Service) RoomMessages(roomName string) []lobby.Message {
	return s.store.RoomMessages(roomName)
}

// PrivateMessages lists the private messages involving username.
func (s *Service) PrivateMessages(username string) []lobby.Message {
	return s.store.PrivateMessages(username)
}

// ShareFile stores file and pushes the refreshed room bundle.
func (s *Service) ShareFile(ctx context.Context, file lobby.SharedFile) (bool, error) {
	if err := required("fileName", file.FileName); err != nil {
		return false, err
	}
	if err := required("roomName", file.RoomName); err != nil {
		return false, err
	}
	if err := required("sharedBy", file.SharedBy); err != nil {
		return false, err
	}

	_, events := s.store.ShareFile(file)
	s.dispatch(ctx, events)
	return true, nil
}

// SharedFiles lists file metadata for roomName. Any caller may list any room.
func (s *Service) SharedFiles(roomName string) []lobby.SharedFile {
	return s.store.FilesInRoom(roomName)
}

// DownloadFile returns the newest matching file with its content.
func (s *Service) DownloadFile(fileName, roomName string) (lobby.SharedFile, bool) {
	return s.store.DownloadFile(fileName, roomName)
}

// Subscribe binds username to sender, replacing any previous handle.
func (s *Service) Subscribe(_ context.Context, username string, sender notify.Sender) error {
	if err := required("username", username); err != nil {
		return err
	}
	s.registry.Subscribe(username, sender)
	s.logger.Info("subscribed", "username", username, "subscribers", s.registry.Len())
	return nil
}

// Unsubscribe removes the handle for username.
func (s *Service) Unsubscribe(_ context.Context, username string) error {
	if err := required("username", username); err != nil {
		return err
	}
	s.registry.Unsubscribe(username)
	s.logger.Info("unsubscribed", "username", username, "subscribers", s.registry.Len())
	return nil
}

// Disconnect logs out every username in usernames unless another connection
// has since subscribed to it. The connection layer calls it when a
// connection closes.
func (s *Service) Disconnect(ctx context.Context, sender notify.Sender, usernames []string) {
	for _, username := range usernames {
		if current, ok := s.registry.Lookup(username); ok && current != sender {
			continue
		}
		s.logger.Info("connection closed, logging out", "username", username)
		if err := s.Logout(ctx, username); err != nil {
			s.logger.Warn("logout on disconnect failed", "username", username, "error", err)
		}
	}
}

// Stats reports store counts and the number of subscriptions.
type Stats struct {
	lobby.Stats
	Subscribers int `json:"subscribers"`
}

// Stats returns current counts.
func (s *Service) Stats() Stats {
	return Stats{Stats: s.store.Stats(), Subscribers: s.registry.Len()}
}
