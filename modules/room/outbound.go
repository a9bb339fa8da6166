package room

import "github.com/example/canvas-sync/domain/canvas"

// Outbound event names delivered to connections.
const (
	EventUserJoined    = "user_joined"
	EventUserLeft      = "user_left"
	EventUsersUpdate   = "users_update"
	EventDrawAction    = "draw_action"
	EventActionMoved   = "action_moved"
	EventCursorUpdate  = "cursor_update"
	EventCanvasState   = "canvas_state"
	EventUndoApplied   = "undo_applied"
	EventRedoApplied   = "redo_applied"
	EventCanvasCleared = "canvas_cleared"
	EventRoomsList     = "rooms_list"
	EventRoomCreated   = "room_created"
	EventChatMessage   = "chat_message"
	EventChatHistory   = "chat_history"
	EventError         = "error"
	EventCanvasSaved   = "canvas_saved"
	EventCanvasLoaded  = "canvas_loaded"
)

// UserLeftPayload is sent to the remaining members when someone leaves.
type UserLeftPayload struct {
	UserID string `json:"user_id"`
}

// ActionMovedPayload carries the full action after a move.
type ActionMovedPayload struct {
	ActionID string        `json:"action_id"`
	Action   canvas.Action `json:"action"`
}

// CursorUpdatePayload is a participant's cursor position.
type CursorUpdatePayload struct {
	OriginUserID string       `json:"origin_user_id"`
	Position     canvas.Point `json:"position"`
}

// HistoryAppliedPayload confirms an undo or redo to the whole room.
type HistoryAppliedPayload struct {
	OriginUserID string `json:"origin_user_id"`
	ActionID     string `json:"action_id"`
}

// CanvasClearedPayload names who cleared the canvas.
type CanvasClearedPayload struct {
	ActorID string `json:"actor_id"`
}

// CanvasSavedPayload confirms a save to the caller.
type CanvasSavedPayload struct {
	RoomID string `json:"room_id"`
}

// ErrorPayload is a user visible failure sent to a single connection.
type ErrorPayload struct {
	Message string `json:"message"`
}
