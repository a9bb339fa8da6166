package canvas

import "errors"

// Lookup errors.
var (
	// ErrRoomNotFound is returned when a room ID does not exist in the registry.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotInRoom is returned when a connection issues a room intent
	// without having joined a room.
	ErrNotInRoom = errors.New("connection is not in a room")
)

// Validation errors.
var (
	ErrInvalidKind        = errors.New("invalid action kind")
	ErrInvalidTool        = errors.New("invalid action tool")
	ErrTooManyPoints      = errors.New("action exceeds maximum point count")
	ErrTextEmpty          = errors.New("text action requires text")
	ErrStrokeWidth        = errors.New("stroke width out of range")
	ErrDisplayNameEmpty   = errors.New("display name cannot be empty")
	ErrDisplayNameTooLong = errors.New("display name exceeds maximum length")
	ErrRoomIDInvalid      = errors.New("room id contains invalid characters")
	ErrRoomNameEmpty      = errors.New("room name cannot be empty")
	ErrRoomNameTooLong    = errors.New("room name exceeds maximum length")
	ErrMessageEmpty       = errors.New("message cannot be empty")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrInvalidEncoding    = errors.New("value is not valid UTF-8")
)
