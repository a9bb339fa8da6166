package api

import "github.com/example/canvas-sync/domain/canvas"

// CreateRoomRequest is the API request to create a room.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// RoomResponse is the API response for a room.
type RoomResponse struct {
	canvas.RoomSummary
	Connected int `json:"connected"`
}

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Total int            `json:"total"`
}

// HistoryResponse is the API response for chat history.
type HistoryResponse struct {
	RoomID   string               `json:"room_id"`
	Messages []canvas.ChatMessage `json:"messages"`
}

// SaveResponse is the API response for a saved canvas.
type SaveResponse struct {
	RoomID  string `json:"room_id"`
	Actions int    `json:"actions"`
	SavedAt int64  `json:"saved_at"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
