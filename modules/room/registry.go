package room

import (
	"sort"
	"sync"
	"time"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/google/uuid"
)

// DefaultMaxChatHistory is the number of chat messages kept per room.
const DefaultMaxChatHistory = 100

// Registry owns the live rooms. Every operation on an unknown room is a
// no-op that returns nil or false.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	maxChat int
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(maxChatHistory int) *Registry {
	if maxChatHistory <= 0 {
		maxChatHistory = DefaultMaxChatHistory
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		maxChat: maxChatHistory,
		now:     time.Now,
	}
}

// CreateRoom returns the room with the given ID, creating it first if needed.
// An existing room keeps its name.
func (g *Registry) CreateRoom(id, name string) canvas.RoomSummary {
	r := g.lockOrCreate(id, name)
	defer r.mu.Unlock()
	return r.summary()
}

// Exists reports whether a room is registered.
func (g *Registry) Exists(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[id]
	return ok
}

// ListRooms returns a summary of every room, oldest first.
func (g *Registry) ListRooms() []canvas.RoomSummary {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	result := make([]canvas.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.evicted {
			result = append(result, r.summary())
		}
		r.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// RoomCount returns the number of live rooms.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// AppendAction appends a to the room's log and empties its redo stack. An
// empty ID is replaced with a generated one.
func (g *Registry) AppendAction(roomID string, a canvas.Action) bool {
	ok := false
	g.withRoom(roomID, func(r *Room) {
		ok = r.appendAction(withID(a))
	})
	return ok
}

// CommitAction is AppendAction for client drawings: actions below the
// minimum point count are dropped and false is returned.
func (g *Registry) CommitAction(roomID string, a canvas.Action) bool {
	ok := false
	g.withRoom(roomID, func(r *Room) {
		ok = r.commit(withID(a))
	})
	return ok
}

// Undo hides the most recent visible action of the room, whoever drew it,
// and pushes it on the room's redo stack.
func (g *Registry) Undo(roomID string) *canvas.Action {
	var out *canvas.Action
	g.withRoom(roomID, func(r *Room) {
		out = cloneOrNil(r.undo())
	})
	return out
}

// Redo restores the most recently undone action.
func (g *Registry) Redo(roomID string) *canvas.Action {
	var out *canvas.Action
	g.withRoom(roomID, func(r *Room) {
		out = cloneOrNil(r.redoLast())
	})
	return out
}

// MoveAction translates a visible action and returns it. Missing and undone
// actions yield nil.
func (g *Registry) MoveAction(roomID, actionID string, dx, dy float64) *canvas.Action {
	var out *canvas.Action
	g.withRoom(roomID, func(r *Room) {
		out = cloneOrNil(r.move(actionID, dx, dy))
	})
	return out
}

// ClearRoom empties the action log and the redo stack. Participants and chat
// history are kept.
func (g *Registry) ClearRoom(roomID string) bool {
	return g.withRoom(roomID, func(r *Room) {
		r.clear()
	})
}

// Snapshot returns the visible actions in log order and the participants.
func (g *Registry) Snapshot(roomID string) *canvas.CanvasState {
	var out *canvas.CanvasState
	g.withRoom(roomID, func(r *Room) {
		out = r.snapshot()
	})
	return out
}

// Participants returns the members of a room in join order.
func (g *Registry) Participants(roomID string) []canvas.Participant {
	var out []canvas.Participant
	g.withRoom(roomID, func(r *Room) {
		out = r.participants()
	})
	return out
}

// AddChatMessage appends to the room's bounded chat history.
func (g *Registry) AddChatMessage(roomID string, msg canvas.ChatMessage) bool {
	return g.withRoom(roomID, func(r *Room) {
		r.addChat(msg)
	})
}

// ChatHistory returns up to limit of the most recent messages, oldest first.
// A non-positive limit returns the whole history.
func (g *Registry) ChatHistory(roomID string, limit int) []canvas.ChatMessage {
	var out []canvas.ChatMessage
	g.withRoom(roomID, func(r *Room) {
		out = r.chatHistory(limit)
	})
	return out
}

// Document returns the full log of a room for persistence.
func (g *Registry) Document(roomID string) *canvas.Document {
	var out *canvas.Document
	g.withRoom(roomID, func(r *Room) {
		out = &canvas.Document{
			ID:      r.id,
			Name:    r.name,
			Actions: r.allActions(),
			SavedAt: g.now().UnixMilli(),
		}
	})
	return out
}

// ReplaceActions replaces a room's log with loaded actions, creating the room
// under name when it does not exist.
func (g *Registry) ReplaceActions(roomID, name string, actions []canvas.Action) *canvas.CanvasState {
	r := g.lockOrCreate(roomID, name)
	defer r.mu.Unlock()
	r.replace(actions)
	r.lastActive = g.now()
	return r.snapshot()
}

// EvictIdle removes rooms that have no members and saw no activity for ttl.
// Rooms listed in keep are never evicted. It returns the evicted IDs.
func (g *Registry) EvictIdle(ttl time.Duration, keep ...string) []string {
	if ttl <= 0 {
		return nil
	}
	pinned := make(map[string]bool, len(keep))
	for _, id := range keep {
		pinned[id] = true
	}
	cutoff := g.now().Add(-ttl)

	g.mu.Lock()
	defer g.mu.Unlock()

	var evicted []string
	for id, r := range g.rooms {
		if pinned[id] {
			continue
		}
		r.mu.Lock()
		if len(r.members) == 0 && r.lastActive.Before(cutoff) {
			r.evicted = true
			delete(g.rooms, id)
			evicted = append(evicted, id)
		}
		r.mu.Unlock()
	}
	sort.Strings(evicted)
	return evicted
}

// lockOrCreate returns the room locked, creating it when absent. A room that
// was evicted between lookup and lock is replaced by a fresh one.
func (g *Registry) lockOrCreate(id, name string) *Room {
	for {
		g.mu.Lock()
		r, ok := g.rooms[id]
		if !ok {
			r = newRoom(id, name, g.maxChat, g.now())
			g.rooms[id] = r
		}
		g.mu.Unlock()

		r.mu.Lock()
		if !r.evicted {
			return r
		}
		r.mu.Unlock()
	}
}

// lock returns the room locked, or nil when it does not exist.
func (g *Registry) lock(id string) *Room {
	g.mu.RLock()
	r, ok := g.rooms[id]
	g.mu.RUnlock()
	if !ok {
		return nil
	}
	r.mu.Lock()
	if r.evicted {
		r.mu.Unlock()
		return nil
	}
	return r
}

// withRoom runs fn with the room locked and marks the room active. It reports
// whether the room exists.
func (g *Registry) withRoom(id string, fn func(r *Room)) bool {
	r := g.lock(id)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()
	r.lastActive = g.now()
	fn(r)
	return true
}

func withID(a canvas.Action) canvas.Action {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return a
}

func cloneOrNil(a *canvas.Action) *canvas.Action {
	if a == nil {
		return nil
	}
	c := a.Clone()
	return &c
}
