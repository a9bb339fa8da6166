package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when a room is created through an explicit
// create request.
type RoomCreatedEvent struct {
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UserCount int       `json:"user_count"`
}

// ParticipantLeftEvent is emitted when a connection leaves a room, either
// explicitly or by disconnecting.
type ParticipantLeftEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name"`
	Remaining    int       `json:"remaining"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the room domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"room",
		"RoomCreated",
		"v1",
	)

	ParticipantLeftV1 = helper.EventDefinition[ParticipantLeftEvent](
		"room",
		"ParticipantLeft",
		"v1",
	)
)
