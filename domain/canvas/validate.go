package canvas

import (
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	MaxDisplayNameLength = 50
	MaxRoomNameLength    = 100
	MaxRoomIDLength      = 64
	MaxMessageLength     = 2000
	MaxPointsPerAction   = 10000
	MaxStrokeWidth       = 200
)

// ValidateAction checks the shape of an incoming action. It does not check
// the minimum point count: short actions are dropped at commit time rather
// than rejected.
func ValidateAction(a Action) error {
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	if !a.Tool.Produces() {
		return ErrInvalidTool
	}
	if len(a.Points) > MaxPointsPerAction {
		return ErrTooManyPoints
	}
	if a.StrokeWidth < 0 || a.StrokeWidth > MaxStrokeWidth {
		return ErrStrokeWidth
	}
	if a.Kind == KindText {
		if strings.TrimSpace(a.Text) == "" {
			return ErrTextEmpty
		}
		if len(a.Text) > MaxMessageLength {
			return ErrMessageTooLong
		}
	}
	if !utf8.ValidString(a.Text) || !utf8.ValidString(a.Color) {
		return ErrInvalidEncoding
	}
	return nil
}

// Normalize applies server-side rules to an incoming action: eraser strokes
// carry EraseColor and only closed shapes keep the filled flag.
func Normalize(a *Action) {
	if a.Tool == ToolEraser {
		a.Color = EraseColor
	}
	if !a.Tool.Closed() {
		a.Filled = false
	}
	if a.Kind != KindText {
		a.Text = ""
	}
}

// ValidateDisplayName validates a participant display name.
func ValidateDisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLength {
		return ErrDisplayNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrInvalidEncoding
	}
	return nil
}

// ValidateRoomID validates a client supplied room ID. IDs end up in file
// names and storage keys, so only letters, digits, '-' and '_' are allowed.
func ValidateRoomID(id string) error {
	if id == "" || len(id) > MaxRoomIDLength {
		return ErrRoomIDInvalid
	}
	for _, c := range id {
		if !isIDChar(c) {
			return ErrRoomIDInvalid
		}
	}
	return nil
}

func isIDChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '-' || c == '_'
}

// ValidateRoomName validates a room display name.
func ValidateRoomName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrInvalidEncoding
	}
	return nil
}

// ValidateMessage validates chat message text.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrMessageEmpty
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(text) {
		return ErrInvalidEncoding
	}
	return nil
}
