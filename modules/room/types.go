package room

import "github.com/example/canvas-sync/domain/canvas"

// Service names registered by the room module.
const (
	ServiceListRooms  = "list-rooms"
	ServiceCreateRoom = "create-room"
	ServiceSnapshot   = "get-snapshot"
	ServiceHistory    = "get-history"
	ServiceDocument   = "get-document"
	ServiceReplace    = "replace-canvas"
)

// ListRoomsRequest is the request for listing rooms.
type ListRoomsRequest struct{}

// ListRoomsResponse lists every live room.
type ListRoomsResponse struct {
	Rooms []canvas.RoomSummary `json:"rooms"`
	Total int                  `json:"total"`
}

// CreateRoomRequest is the request for creating a room.
type CreateRoomRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by,omitempty"`
}

// CreateRoomResponse returns the created room.
type CreateRoomResponse struct {
	Room  canvas.RoomSummary `json:"room"`
	Error string             `json:"error,omitempty"`
}

// SnapshotRequest asks for a room's visible canvas.
type SnapshotRequest struct {
	RoomID string `json:"room_id"`
}

// SnapshotResponse carries a room's visible canvas.
type SnapshotResponse struct {
	State *canvas.CanvasState `json:"state,omitempty"`
	Found bool                `json:"found"`
}

// HistoryRequest asks for a room's chat history.
type HistoryRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit"`
}

// HistoryResponse carries a room's chat history.
type HistoryResponse struct {
	Messages []canvas.ChatMessage `json:"messages"`
	Found    bool                 `json:"found"`
}

// DocumentRequest asks for a room's full action log.
type DocumentRequest struct {
	RoomID string `json:"room_id"`
}

// DocumentResponse carries a room's full action log.
type DocumentResponse struct {
	Document *canvas.Document `json:"document,omitempty"`
	Found    bool             `json:"found"`
}

// ReplaceRequest replaces a room's log with a loaded document.
type ReplaceRequest struct {
	Document canvas.Document `json:"document"`
}

// ReplaceResponse returns the room's canvas after the replace.
type ReplaceResponse struct {
	State *canvas.CanvasState `json:"state,omitempty"`
	Error string              `json:"error,omitempty"`
}
