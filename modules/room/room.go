package room

import (
	"sync"
	"time"

	"github.com/example/canvas-sync/domain/canvas"
)

// Room is one collaborative session. All fields are guarded by mu; the
// unexported methods below assume the caller holds it.
type Room struct {
	mu sync.Mutex

	id         string
	name       string
	createdAt  time.Time
	lastActive time.Time
	evicted    bool

	// actions is append-only between clears; redo holds pointers into it.
	actions []*canvas.Action
	byID    map[string]*canvas.Action
	redo    []*canvas.Action

	members map[string]*canvas.Participant
	order   []string // member connection IDs in join order

	chat    []canvas.ChatMessage
	maxChat int
}

func newRoom(id, name string, maxChat int, now time.Time) *Room {
	return &Room{
		id:         id,
		name:       name,
		createdAt:  now,
		lastActive: now,
		byID:       make(map[string]*canvas.Action),
		members:    make(map[string]*canvas.Participant),
		maxChat:    maxChat,
	}
}

func (r *Room) summary() canvas.RoomSummary {
	return canvas.RoomSummary{
		ID:        r.id,
		Name:      r.name,
		UserCount: len(r.members),
		CreatedAt: r.createdAt,
	}
}

// appendAction stores a copy of a at the end of the log and empties the redo
// stack. Duplicate IDs are refused since move and undo address actions by ID.
func (r *Room) appendAction(a canvas.Action) bool {
	if _, dup := r.byID[a.ID]; dup {
		return false
	}
	stored := a.Clone()
	stored.Undone = false
	r.actions = append(r.actions, &stored)
	r.byID[stored.ID] = &stored
	r.redo = nil
	return true
}

// commit is appendAction guarded by the minimum point count.
func (r *Room) commit(a canvas.Action) bool {
	if len(a.Points) < a.MinPoints() {
		return false
	}
	return r.appendAction(a)
}

func (r *Room) undo() *canvas.Action {
	for i := len(r.actions) - 1; i >= 0; i-- {
		a := r.actions[i]
		if !a.Undone {
			a.Undone = true
			r.redo = append(r.redo, a)
			return a
		}
	}
	return nil
}

func (r *Room) redoLast() *canvas.Action {
	n := len(r.redo)
	if n == 0 {
		return nil
	}
	a := r.redo[n-1]
	r.redo[n-1] = nil
	r.redo = r.redo[:n-1]
	a.Undone = false
	return a
}

// move translates a visible action in place. The redo stack is left alone.
func (r *Room) move(actionID string, dx, dy float64) *canvas.Action {
	a, ok := r.byID[actionID]
	if !ok || a.Undone {
		return nil
	}
	a.Translate(dx, dy)
	return a
}

func (r *Room) clear() {
	r.actions = nil
	r.redo = nil
	r.byID = make(map[string]*canvas.Action)
}

// replace swaps the whole log for a loaded one. Pending redos refer to the
// old log and are dropped.
func (r *Room) replace(actions []canvas.Action) {
	r.clear()
	for _, a := range actions {
		if _, dup := r.byID[a.ID]; dup || a.ID == "" {
			continue
		}
		stored := a.Clone()
		r.actions = append(r.actions, &stored)
		r.byID[stored.ID] = &stored
	}
}

func (r *Room) visibleActions() []canvas.Action {
	out := make([]canvas.Action, 0, len(r.actions))
	for _, a := range r.actions {
		if !a.Undone {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (r *Room) allActions() []canvas.Action {
	out := make([]canvas.Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.Clone())
	}
	return out
}

func (r *Room) snapshot() *canvas.CanvasState {
	return &canvas.CanvasState{
		RoomID:       r.id,
		Actions:      r.visibleActions(),
		Participants: r.participants(),
	}
}

func (r *Room) participants() []canvas.Participant {
	out := make([]canvas.Participant, 0, len(r.order))
	for _, id := range r.order {
		p := *r.members[id]
		if p.LastCursor != nil {
			c := *p.LastCursor
			p.LastCursor = &c
		}
		out = append(out, p)
	}
	return out
}

func (r *Room) usedColors() map[string]bool {
	used := make(map[string]bool, len(r.members))
	for _, p := range r.members {
		used[p.Color] = true
	}
	return used
}

func (r *Room) addMember(connID, displayName string) canvas.Participant {
	if _, exists := r.members[connID]; !exists {
		r.order = append(r.order, connID)
	}
	p := &canvas.Participant{
		ConnectionID: connID,
		DisplayName:  displayName,
	}
	// a rejoining connection must not see its own old color as taken
	delete(r.members, connID)
	p.Color = canvas.AssignColor(displayName, connID, r.usedColors())
	r.members[connID] = p
	return *p
}

func (r *Room) removeMember(connID string) (canvas.Participant, bool) {
	p, ok := r.members[connID]
	if !ok {
		return canvas.Participant{}, false
	}
	delete(r.members, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *p, true
}

func (r *Room) addChat(msg canvas.ChatMessage) {
	r.chat = append(r.chat, msg)
	if len(r.chat) > r.maxChat {
		// copy so the evicted prefix can be collected
		trimmed := make([]canvas.ChatMessage, r.maxChat)
		copy(trimmed, r.chat[len(r.chat)-r.maxChat:])
		r.chat = trimmed
	}
}

func (r *Room) chatHistory(limit int) []canvas.ChatMessage {
	if limit <= 0 || limit > len(r.chat) {
		limit = len(r.chat)
	}
	out := make([]canvas.ChatMessage, limit)
	copy(out, r.chat[len(r.chat)-limit:])
	return out
}
