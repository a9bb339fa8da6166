package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/canvas-sync/domain/canvas"
)

// Inbound message types accepted on /ws.
const (
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeDrawAction  = "draw_action"
	TypeMoveAction  = "move_action"
	TypeCursorMove  = "cursor_move"
	TypeUndo        = "undo"
	TypeRedo        = "redo"
	TypeClearCanvas = "clear_canvas"
	TypeGetRooms    = "get_rooms"
	TypeCreateRoom  = "create_room"
	TypeSaveCanvas  = "save_canvas"
	TypeLoadCanvas  = "load_canvas"
	TypeSendChat    = "send_chat"
)

// ErrUnknownType is returned by DecodeIntent for an unrecognized type.
var ErrUnknownType = errors.New("unknown message type")

// Envelope is the wire frame of every inbound websocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Intent is one decoded inbound message. The set of implementations is
// closed; dispatch switches over all of them.
type Intent interface {
	intent()
}

type JoinRoom struct {
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
}

type LeaveRoom struct{}

// DrawAction is a finished action. Identity fields are stamped by the server.
type DrawAction canvas.Action

type MoveAction struct {
	ActionID string  `json:"action_id"`
	DeltaX   float64 `json:"delta_x"`
	DeltaY   float64 `json:"delta_y"`
}

type CursorMove canvas.Point

type Undo struct{}

type Redo struct{}

type ClearCanvas struct{}

type GetRooms struct{}

type CreateRoom struct {
	Name string `json:"name"`
}

// SaveCanvas saves the caller's current room.
type SaveCanvas struct{}

type LoadCanvas struct {
	RoomID string `json:"room_id"`
}

type SendChat struct {
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

func (JoinRoom) intent()    {}
func (LeaveRoom) intent()   {}
func (DrawAction) intent()  {}
func (MoveAction) intent()  {}
func (CursorMove) intent()  {}
func (Undo) intent()        {}
func (Redo) intent()        {}
func (ClearCanvas) intent() {}
func (GetRooms) intent()    {}
func (CreateRoom) intent()  {}
func (SaveCanvas) intent()  {}
func (LoadCanvas) intent()  {}
func (SendChat) intent()    {}

// DecodeIntent parses a raw websocket frame into its Intent.
func DecodeIntent(data []byte) (Intent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	switch env.Type {
	case TypeJoinRoom:
		return decodeAs[JoinRoom](env)
	case TypeLeaveRoom:
		return LeaveRoom{}, nil
	case TypeDrawAction:
		return decodeAs[DrawAction](env)
	case TypeMoveAction:
		return decodeAs[MoveAction](env)
	case TypeCursorMove:
		return decodeAs[CursorMove](env)
	case TypeUndo:
		return Undo{}, nil
	case TypeRedo:
		return Redo{}, nil
	case TypeClearCanvas:
		return ClearCanvas{}, nil
	case TypeGetRooms:
		return GetRooms{}, nil
	case TypeCreateRoom:
		return decodeAs[CreateRoom](env)
	case TypeSaveCanvas:
		return SaveCanvas{}, nil
	case TypeLoadCanvas:
		return decodeAs[LoadCanvas](env)
	case TypeSendChat:
		return decodeAs[SendChat](env)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
}

func decodeAs[T Intent](env Envelope) (Intent, error) {
	var in T
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%s requires a payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &in); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
	}
	return in, nil
}
