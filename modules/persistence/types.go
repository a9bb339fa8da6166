package persistence

import "github.com/example/canvas-sync/domain/canvas"

// Service names registered by the persistence module.
const (
	ServiceSave = "save-canvas"
	ServiceLoad = "load-canvas"
)

// SaveRequest asks for a room's canvas to be saved.
type SaveRequest struct {
	RoomID string `json:"room_id"`
}

// SaveResponse reports a completed save.
type SaveResponse struct {
	RoomID  string `json:"room_id"`
	Actions int    `json:"actions"`
	SavedAt int64  `json:"saved_at"`
	Error   string `json:"error,omitempty"`
}

// LoadRequest asks for a room's saved canvas to be loaded.
type LoadRequest struct {
	RoomID string `json:"room_id"`
}

// LoadResponse carries the room's canvas after the load.
type LoadResponse struct {
	State *canvas.CanvasState `json:"state,omitempty"`
	Found bool                `json:"found"`
	Error string              `json:"error,omitempty"`
}
