package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyrowin/lobby/internal/lobby"
	"github.com/Tyrowin/lobby/internal/notify"
)

// Session is the connection a request arrived on. It doubles as the push
// handle installed by subscribe, and remembers which usernames it has
// claimed so they can be released when it closes.
type Session interface {
	notify.Sender
	Bind(username string)
	Unbind(username string)
}

// Request is one client call.
type Request struct {
	ID     string          `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request with the same ID.
type Response struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

const responseType = "response"

type handlerFunc func(ctx context.Context, session Session, params json.RawMessage) (any, error)

// Router decodes request frames and invokes the matching Service method.
type Router struct {
	svc      *Service
	handlers map[string]handlerFunc
	logger   *slog.Logger
}

// NewRouter creates a Router over svc.
func NewRouter(svc *Service, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{svc: svc, logger: logger}
	r.handlers = map[string]handlerFunc{
		"login":           r.login,
		"logout":          r.logout,
		"onlinePlayers":   r.onlinePlayers,
		"createRoom":      r.createRoom,
		"availableRooms":  r.availableRooms,
		"joinRoom":        r.joinRoom,
		"leaveRoom":       r.leaveRoom,
		"playersInRoom":   r.playersInRoom,
		"sendMessage":     r.sendMessage,
		"roomMessages":    r.roomMessages,
		"privateMessages": r.privateMessages,
		"shareFile":       r.shareFile,
		"sharedFiles":     r.sharedFiles,
		"downloadFile":    r.downloadFile,
		"subscribe":       r.subscribe,
		"unsubscribe":     r.unsubscribe,
	}
	return r
}

// Handle decodes raw and runs it. It always returns a response; failures are
// reported in the response rather than as an error.
func (r *Router) Handle(ctx context.Context, session Session, raw []byte) Response {
	start := time.Now()

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure(req, fmt.Errorf("%w: %v", ErrMalformedRequest, err))
	}

	handler, ok := r.handlers[req.Op]
	if !ok {
		return failure(req, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op))
	}

	result, err := handler(ctx, session, req.Params)
	if err != nil {
		r.logger.Debug("request failed", "op", req.Op, "error", err)
		return failure(req, err)
	}

	r.logger.Debug("request handled", "op", req.Op, "duration", time.Since(start))
	return Response{ID: req.ID, Type: responseType, Op: req.Op, OK: true, Result: result}
}

// Reject builds a failure response for raw without running it.
func (r *Router) Reject(raw []byte, err error) Response {
	var req Request
	_ = json.Unmarshal(raw, &req)
	return failure(req, err)
}

func failure(req Request, err error) Response {
	return Response{ID: req.ID, Type: responseType, Op: req.Op, OK: false, Error: err.Error()}
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrUnknownOp) ||
		errors.Is(err, ErrMalformedRequest) ||
		errors.Is(err, ErrRateLimited)
}

func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 || string(params) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, fmt.Errorf("%w: params: %v", ErrMalformedRequest, err)
	}
	return v, nil
}

type usernameParams struct {
	Username string `json:"username"`
}

type roomParams struct {
	RoomName string `json:"roomName"`
}

type createRoomParams struct {
	RoomName  string `json:"roomName"`
	CreatedBy string `json:"createdBy"`
	Username  string `json:"username"`
}

type joinRoomParams struct {
	RoomName string `json:"roomName"`
	Username string `json:"username"`
}

type messageParams struct {
	Message lobby.Message `json:"message"`
}

type fileParams struct {
	File lobby.SharedFile `json:"file"`
}

type downloadParams struct {
	FileName string `json:"fileName"`
	RoomName string `json:"roomName"`
}

func (r *Router) login(ctx context.Context, session Session, params json.RawMessage) (any, error) {
	p, err := decode[usernameParams](params)
	if err != nil {
		return nil, err
	}
	ok, err := r.svc.Login(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	if ok {
		session.Bind(p.Username)
	}
	return ok, nil
}

func (r *Router) logout(ctx context.Context, session Session, params json.RawMessage) (any, error) {
	p, err := decode[usernameParams](params)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Logout(ctx, p.Username); err != nil {
		return nil, err
	}
	session.Unbind(p.Username)
	return nil, nil
}

func (r *Router) onlinePlayers(context.Context, Session, json.RawMessage) (any, error) {
	return r.svc.OnlinePlayers(), nil
}

func (r *Router) createRoom(ctx context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[createRoomParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.CreateRoom(ctx, p.RoomName, p.CreatedBy, p.Username)
}

func (r *Router) availableRooms(context.Context, Session, json.RawMessage) (any, error) {
	return r.svc.AvailableRooms(), nil
}

func (r *Router) joinRoom(ctx context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[joinRoomParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.JoinRoom(ctx, p.RoomName, p.Username)
}

func (r *Router) leaveRoom(ctx context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[usernameParams](params)
	if err != nil {
		return nil, err
	}
	return nil, r.svc.LeaveRoom(ctx, p.Username)
}

func (r *Router) playersInRoom(_ context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[roomParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.PlayersInRoom(p.RoomName), nil
}

func (r *Router) sendMessage(ctx context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[messageParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.SendMessage(ctx, p.Message)
}

func (r *Router) roomMessages(_ context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[roomParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.RoomMessages(p.RoomName), nil
}

func (r *Router) privateMessages(_ context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[usernameParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.PrivateMessages(p.Username), nil
}

func (r *Router) shareFile(ctx context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[fileParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.ShareFile(ctx, p.File)
}

func (r *Router) sharedFiles(_ context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[roomParams](params)
	if err != nil {
		return nil, err
	}
	return r.svc.SharedFiles(p.RoomName), nil
}

func (r *Router) downloadFile(_ context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[downloadParams](params)
	if err != nil {
		return nil, err
	}
	file, ok := r.svc.DownloadFile(p.FileName, p.RoomName)
	if !ok {
		return nil, nil
	}
	return file, nil
}

func (r *Router) subscribe(ctx context.Context, session Session, params json.RawMessage) (any, error) {
	p, err := decode[usernameParams](params)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Subscribe(ctx, p.Username, session); err != nil {
		return nil, err
	}
	session.Bind(p.Username)
	return nil, nil
}

func (r *Router) unsubscribe(ctx context.Context, _ Session, params json.RawMessage) (any, error) {
	p, err := decode[usernameParams](params)
	if err != nil {
		return nil, err
	}
	return nil, r.svc.Unsubscribe(ctx, p.Username)
}
