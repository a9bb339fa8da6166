package canvas

import "time"

// Logical canvas extent. Every point is expressed in this space regardless
// of the client viewport.
const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)

// EraseColor is recorded on eraser strokes instead of a real color.
const EraseColor = "erase"

// Point is a canvas-space coordinate with the origin at the top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Kind is the kind of drawn content an action carries.
type Kind string

const (
	KindStroke Kind = "stroke"
	KindShape  Kind = "shape"
	KindText   Kind = "text"
)

// Valid reports whether k is a storable kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStroke, KindShape, KindText:
		return true
	}
	return false
}

// Tool is the drawing tool that produced an action.
type Tool string

const (
	ToolBrush     Tool = "brush"
	ToolEraser    Tool = "eraser"
	ToolLine      Tool = "line"
	ToolArrow     Tool = "arrow"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolTriangle  Tool = "triangle"
	ToolDiamond   Tool = "diamond"
	ToolText      Tool = "text"
	ToolSelect    Tool = "select"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolBrush, ToolEraser, ToolLine, ToolArrow, ToolRectangle,
		ToolCircle, ToolTriangle, ToolDiamond, ToolText, ToolSelect:
		return true
	}
	return false
}

// Produces reports whether the tool creates actions. Select only targets
// existing ones.
func (t Tool) Produces() bool {
	return t.Valid() && t != ToolSelect
}

// Closed reports whether shapes drawn with the tool can be filled.
func (t Tool) Closed() bool {
	switch t {
	case ToolRectangle, ToolCircle, ToolTriangle, ToolDiamond:
		return true
	}
	return false
}

// Action is one drawing operation in a room's timeline.
type Action struct {
	ID           string  `json:"id"`
	OriginUserID string  `json:"origin_user_id"`
	Kind         Kind    `json:"kind"`
	Tool         Tool    `json:"tool"`
	Points       []Point `json:"points"`
	Color        string  `json:"color"`
	StrokeWidth  float64 `json:"stroke_width"`
	Filled       bool    `json:"filled,omitempty"`
	Text         string  `json:"text,omitempty"`
	CreatedAt    int64   `json:"created_at"`
	Undone       bool    `json:"undone"`
}

// Clone returns a copy of the action that shares no memory with a.
func (a Action) Clone() Action {
	c := a
	if a.Points != nil {
		c.Points = make([]Point, len(a.Points))
		copy(c.Points, a.Points)
	}
	return c
}

// Translate moves every point of the action by (dx, dy) in place.
func (a *Action) Translate(dx, dy float64) {
	for i := range a.Points {
		a.Points[i].X += dx
		a.Points[i].Y += dy
	}
}

// MinPoints returns how many points the action needs to be stored.
func (a Action) MinPoints() int {
	if a.Kind == KindText {
		return 1
	}
	return 2
}

// Participant is a connection's presence inside a room.
type Participant struct {
	ConnectionID string `json:"id"`
	DisplayName  string `json:"username"`
	Color        string `json:"color"`
	LastCursor   *Point `json:"cursor,omitempty"`
}

// ChatMessage is a chat line kept in a room's bounded history.
type ChatMessage struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Color     string `json:"color,omitempty"`
	IsSystem  bool   `json:"is_system,omitempty"`
}

// RoomSummary is the listing view of a room.
type RoomSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserCount int       `json:"user_count"`
	CreatedAt time.Time `json:"created_at"`
}

// CanvasState is the snapshot sent to hydrate a client: visible actions in
// log order plus the current participants.
type CanvasState struct {
	RoomID       string        `json:"room_id"`
	Actions      []Action      `json:"actions"`
	Participants []Participant `json:"users"`
}

// Document is the persisted layout of a room's canvas: the whole action
// log, undone actions included.
type Document struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
	SavedAt int64    `json:"savedAt"`
}
