package room

import (
	"sync"

	"github.com/example/canvas-sync/domain/canvas"
)

// SessionManager maps connections to the room they are in. A connection is
// in at most one room; the reverse index is only changed together with the
// room's member table.
type SessionManager struct {
	mu       sync.Mutex
	registry *Registry
	index    map[string]string // connectionID -> roomID
}

// NewSessionManager creates a session manager over registry.
func NewSessionManager(registry *Registry) *SessionManager {
	return &SessionManager{
		registry: registry,
		index:    make(map[string]string),
	}
}

// joinHook runs with the joined room locked. rejoin is set when the
// connection was already a member of the room.
type joinHook func(r *Room, p canvas.Participant, rejoin bool)

// leaveHook runs with the left room locked.
type leaveHook func(r *Room, p canvas.Participant)

// Join puts the connection in roomID, creating the room when needed, and
// returns the new participant. A connection already in another room leaves
// it first. Joining the room the connection is already in keeps its
// membership as is.
func (s *SessionManager) Join(roomID, connectionID, displayName string) canvas.Participant {
	return s.join(roomID, connectionID, displayName, nil, nil)
}

func (s *SessionManager) join(roomID, connID, displayName string, onLeave leaveHook, onJoin joinHook) canvas.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.index[connID]; ok {
		if current == roomID {
			if p, ok := s.rejoinLocked(roomID, connID, onJoin); ok {
				return p
			}
		}
		s.leaveLocked(connID, onLeave)
	}

	r := s.registry.lockOrCreate(roomID, "Room "+roomID)
	defer r.mu.Unlock()

	p := r.addMember(connID, displayName)
	r.lastActive = s.registry.now()
	s.index[connID] = roomID
	if onJoin != nil {
		onJoin(r, p, false)
	}
	return p
}

func (s *SessionManager) rejoinLocked(roomID, connID string, onJoin joinHook) (canvas.Participant, bool) {
	r := s.registry.lock(roomID)
	if r == nil {
		return canvas.Participant{}, false
	}
	defer r.mu.Unlock()

	member, ok := r.members[connID]
	if !ok {
		return canvas.Participant{}, false
	}
	p := *member
	r.lastActive = s.registry.now()
	if onJoin != nil {
		onJoin(r, p, true)
	}
	return p, true
}

// Leave removes the connection from its room and returns the room ID, or
// false when the connection was not in a room. Authored actions stay in the
// log untouched.
func (s *SessionManager) Leave(connectionID string) (string, bool) {
	return s.leave(connectionID, nil)
}

func (s *SessionManager) leave(connID string, onLeave leaveHook) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(connID, onLeave)
}

func (s *SessionManager) leaveLocked(connID string, onLeave leaveHook) (string, bool) {
	roomID, ok := s.index[connID]
	if !ok {
		return "", false
	}
	delete(s.index, connID)

	r := s.registry.lock(roomID)
	if r == nil {
		return roomID, true
	}
	defer r.mu.Unlock()

	p, removed := r.removeMember(connID)
	r.lastActive = s.registry.now()
	if removed && onLeave != nil {
		onLeave(r, p)
	}
	return roomID, true
}

// RoomOf returns the room the connection is in.
func (s *SessionManager) RoomOf(connectionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.index[connectionID]
	return roomID, ok
}

// UpdateCursor records the participant's last cursor position. It reports
// false when the connection is not in a room.
func (s *SessionManager) UpdateCursor(connectionID string, p canvas.Point) bool {
	return s.withMember(connectionID, func(r *Room, member *canvas.Participant) {
		member.LastCursor = &canvas.Point{X: p.X, Y: p.Y}
	})
}

// Count returns the number of connections currently in a room.
func (s *SessionManager) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// withMember runs fn with the connection's room locked. Connections that
// left between the index lookup and the lock are skipped.
func (s *SessionManager) withMember(connID string, fn func(r *Room, member *canvas.Participant)) bool {
	roomID, ok := s.RoomOf(connID)
	if !ok {
		return false
	}
	r := s.registry.lock(roomID)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()

	member, ok := r.members[connID]
	if !ok {
		return false
	}
	r.lastActive = s.registry.now()
	fn(r, member)
	return true
}
