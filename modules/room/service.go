package room

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/example/canvas-sync/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

// Notifier delivers outbound events to connections. Subscribe and
// Unsubscribe keep its room membership in step with the session manager.
type Notifier interface {
	Subscribe(connID, roomID string)
	Unsubscribe(connID string)
	NotifyRoom(roomID, event string, payload any, excludeConnID string)
	NotifyClient(connID, event string, payload any)
	NotifyAll(event string, payload any)
}

// Service applies connection intents to the room state and fans out the
// resulting deltas. Fan-out happens while the room is locked, so every
// member receives a room's deltas in log order.
type Service struct {
	registry  *Registry
	sessions  *SessionManager
	notifier  Notifier
	eventBus  mono.EventBus
	logger    types.Logger
	newRoomID func() string
}

// NewService creates a room service.
func NewService(registry *Registry, sessions *SessionManager, logger types.Logger) (*Service, error) {
	gen, err := nanoid.Standard(12)
	if err != nil {
		return nil, fmt.Errorf("failed to create room id generator: %w", err)
	}
	return &Service{
		registry:  registry,
		sessions:  sessions,
		notifier:  noopNotifier{},
		logger:    logger,
		newRoomID: gen,
	}, nil
}

// SetNotifier sets the fan-out target.
func (s *Service) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

// SetEventBus sets the bus used for domain events. Without a bus, room
// announcements go straight to the notifier.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// Registry returns the underlying room registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Sessions returns the underlying session manager.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Join puts a connection in a room. The caller receives the canvas state and
// chat history, the others learn about the newcomer, and everyone receives
// the refreshed member list.
func (s *Service) Join(connID, roomID, displayName string) (canvas.Participant, error) {
	if err := canvas.ValidateRoomID(roomID); err != nil {
		return canvas.Participant{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "Anonymous"
	}
	if err := canvas.ValidateDisplayName(displayName); err != nil {
		return canvas.Participant{}, err
	}

	var left *events.ParticipantLeftEvent
	p := s.sessions.join(roomID, connID, displayName, s.leaveHook(connID, &left), func(r *Room, p canvas.Participant, rejoin bool) {
		if rejoin {
			s.notifier.NotifyClient(connID, EventCanvasState, r.snapshot())
			s.notifier.NotifyClient(connID, EventChatHistory, r.chatHistory(0))
			return
		}
		s.notifier.Subscribe(connID, r.id)
		s.notifier.NotifyRoom(r.id, EventUserJoined, p, connID)
		s.notifier.NotifyClient(connID, EventCanvasState, r.snapshot())
		s.notifier.NotifyClient(connID, EventChatHistory, r.chatHistory(0))
		s.notifier.NotifyRoom(r.id, EventUsersUpdate, r.participants(), "")
	})
	s.publishLeft(left)

	s.logger.Info("Participant joined room",
		"connectionID", connID,
		"roomID", roomID,
		"color", p.Color)
	return p, nil
}

// Leave removes a connection from its room. Disconnects go through the same
// path. It reports whether the connection was in a room.
func (s *Service) Leave(connID string) bool {
	var left *events.ParticipantLeftEvent
	roomID, ok := s.sessions.leave(connID, s.leaveHook(connID, &left))
	if !ok {
		return false
	}
	s.publishLeft(left)
	s.logger.Info("Participant left room", "connectionID", connID, "roomID", roomID)
	return true
}

func (s *Service) leaveHook(connID string, out **events.ParticipantLeftEvent) leaveHook {
	return func(r *Room, p canvas.Participant) {
		s.notifier.Unsubscribe(connID)
		s.notifier.NotifyRoom(r.id, EventUserLeft, UserLeftPayload{UserID: p.ConnectionID}, connID)
		s.notifier.NotifyRoom(r.id, EventUsersUpdate, r.participants(), "")
		*out = &events.ParticipantLeftEvent{
			RoomID:       r.id,
			ConnectionID: p.ConnectionID,
			DisplayName:  p.DisplayName,
			Remaining:    len(r.members),
			Timestamp:    time.Now(),
		}
	}
}

func (s *Service) publishLeft(evt *events.ParticipantLeftEvent) {
	if evt == nil || s.eventBus == nil {
		return
	}
	if err := events.ParticipantLeftV1.Publish(s.eventBus, *evt, nil); err != nil {
		s.logger.Warn("Failed to publish ParticipantLeft event", "roomID", evt.RoomID, "error", err)
	}
}

// Draw commits a finished action for the caller's room and forwards it to
// the other members. Actions below the minimum point count are dropped
// without an error.
func (s *Service) Draw(connID string, a canvas.Action) error {
	if err := canvas.ValidateAction(a); err != nil {
		return err
	}
	canvas.Normalize(&a)
	a.OriginUserID = connID
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	a = withID(a)

	ok := s.sessions.withMember(connID, func(r *Room, _ *canvas.Participant) {
		if r.commit(a) {
			s.notifier.NotifyRoom(r.id, EventDrawAction, r.byID[a.ID].Clone(), connID)
		}
	})
	if !ok {
		return canvas.ErrNotInRoom
	}
	return nil
}

// Move translates an existing visible action and forwards the full result to
// the other members. The redo stack is not touched.
func (s *Service) Move(connID, actionID string, dx, dy float64) error {
	if !finite(dx) || !finite(dy) {
		return nil
	}
	ok := s.sessions.withMember(connID, func(r *Room, _ *canvas.Participant) {
		if moved := r.move(actionID, dx, dy); moved != nil {
			s.notifier.NotifyRoom(r.id, EventActionMoved, ActionMovedPayload{
				ActionID: moved.ID,
				Action:   moved.Clone(),
			}, connID)
		}
	})
	if !ok {
		return canvas.ErrNotInRoom
	}
	return nil
}

// Cursor records the caller's cursor and forwards it to the other members.
func (s *Service) Cursor(connID string, p canvas.Point) error {
	if !finite(p.X) || !finite(p.Y) {
		return nil
	}
	ok := s.sessions.withMember(connID, func(r *Room, member *canvas.Participant) {
		member.LastCursor = &canvas.Point{X: p.X, Y: p.Y}
		s.notifier.NotifyRoom(r.id, EventCursorUpdate, CursorUpdatePayload{
			OriginUserID: connID,
			Position:     p,
		}, connID)
	})
	if !ok {
		return canvas.ErrNotInRoom
	}
	return nil
}

// Undo hides the room's most recent visible action and confirms it to every
// member, the caller included.
func (s *Service) Undo(connID string) error {
	ok := s.sessions.withMember(connID, func(r *Room, _ *canvas.Participant) {
		if a := r.undo(); a != nil {
			s.notifier.NotifyRoom(r.id, EventUndoApplied, HistoryAppliedPayload{
				OriginUserID: connID,
				ActionID:     a.ID,
			}, "")
		}
	})
	if !ok {
		return canvas.ErrNotInRoom
	}
	return nil
}

// Redo restores the room's most recently undone action and confirms it to
// every member.
func (s *Service) Redo(connID string) error {
	ok := s.sessions.withMember(connID, func(r *Room, _ *canvas.Participant) {
		if a := r.redoLast(); a != nil {
			s.notifier.NotifyRoom(r.id, EventRedoApplied, HistoryAppliedPayload{
				OriginUserID: connID,
				ActionID:     a.ID,
			}, "")
		}
	})
	if !ok {
		return canvas.ErrNotInRoom
	}
	return nil
}

// Clear empties the caller's canvas for everyone. There is no undo for it.
func (s *Service) Clear(connID string) error {
	ok := s.sessions.withMember(connID, func(r *Room, _ *canvas.Participant) {
		r.clear()
		s.notifier.NotifyRoom(r.id, EventCanvasCleared, CanvasClearedPayload{ActorID: connID}, "")
	})
	if !ok {
		return canvas.ErrNotInRoom
	}
	return nil
}

// Chat appends a message to the caller's room history and delivers it to
// every member. Identity fields are stamped by the server. roomID may be
// empty; otherwise it must be the caller's room.
func (s *Service) Chat(connID, roomID string, msg canvas.ChatMessage) error {
	if err := canvas.ValidateMessage(msg.Text); err != nil {
		return err
	}
	current, ok := s.sessions.RoomOf(connID)
	if !ok || (roomID != "" && roomID != current) {
		return canvas.ErrNotInRoom
	}

	ok = s.sessions.withMember(connID, func(r *Room, member *canvas.Participant) {
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().UnixMilli()
		}
		msg.UserID = connID
		msg.Username = member.DisplayName
		msg.Color = member.Color
		msg.IsSystem = false
		r.addChat(msg)
		s.notifier.NotifyRoom(r.id, EventChatMessage, msg, "")
	})
	if !ok {
		return canvas.ErrNotInRoom
	}
	return nil
}

// SendRooms sends the room listing to a single connection.
func (s *Service) SendRooms(connID string) {
	s.notifier.NotifyClient(connID, EventRoomsList, s.registry.ListRooms())
}

// CreateRoom creates a room with a generated ID and announces it to every
// connection. When connID is set the caller also receives the new listing.
func (s *Service) CreateRoom(connID, name string) (canvas.RoomSummary, error) {
	name = strings.TrimSpace(name)
	if err := canvas.ValidateRoomName(name); err != nil {
		return canvas.RoomSummary{}, err
	}

	summary := s.registry.CreateRoom("room_"+s.newRoomID(), name)

	evt := events.RoomCreatedEvent{
		RoomID:    summary.ID,
		RoomName:  summary.Name,
		CreatedBy: connID,
		CreatedAt: summary.CreatedAt,
		UserCount: summary.UserCount,
	}
	if s.eventBus != nil {
		if err := events.RoomCreatedV1.Publish(s.eventBus, evt, nil); err != nil {
			s.logger.Warn("Failed to publish RoomCreated event", "roomID", summary.ID, "error", err)
			s.notifier.NotifyAll(EventRoomCreated, summary)
		}
	} else {
		s.notifier.NotifyAll(EventRoomCreated, summary)
	}

	if connID != "" {
		s.SendRooms(connID)
	}
	s.logger.Info("Room created", "roomID", summary.ID, "name", summary.Name)
	return summary, nil
}

// ReplaceCanvas swaps a room's log for a loaded one and sends the new canvas
// state to every member. The room is created when it does not exist.
func (s *Service) ReplaceCanvas(roomID, name string, actions []canvas.Action) (*canvas.CanvasState, error) {
	if err := canvas.ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Room " + roomID
	}

	r := s.registry.lockOrCreate(roomID, name)
	defer r.mu.Unlock()

	r.replace(actions)
	r.lastActive = s.registry.now()
	state := r.snapshot()
	s.notifier.NotifyRoom(roomID, EventCanvasState, state, "")
	return state, nil
}

// Snapshot returns the room's visible canvas, or ErrRoomNotFound.
func (s *Service) Snapshot(roomID string) (*canvas.CanvasState, error) {
	state := s.registry.Snapshot(roomID)
	if state == nil {
		return nil, canvas.ErrRoomNotFound
	}
	return state, nil
}

// Document returns the room's full log for persistence, or ErrRoomNotFound.
func (s *Service) Document(roomID string) (*canvas.Document, error) {
	doc := s.registry.Document(roomID)
	if doc == nil {
		return nil, canvas.ErrRoomNotFound
	}
	return doc, nil
}

// History returns the room's recent chat messages, or ErrRoomNotFound.
func (s *Service) History(roomID string, limit int) ([]canvas.ChatMessage, error) {
	if !s.registry.Exists(roomID) {
		return nil, canvas.ErrRoomNotFound
	}
	return s.registry.ChatHistory(roomID, limit), nil
}

// ListRooms returns every room summary.
func (s *Service) ListRooms() []canvas.RoomSummary {
	return s.registry.ListRooms()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type noopNotifier struct{}

func (noopNotifier) Subscribe(string, string)               {}
func (noopNotifier) Unsubscribe(string)                     {}
func (noopNotifier) NotifyRoom(string, string, any, string) {}
func (noopNotifier) NotifyClient(string, string, any)       {}
func (noopNotifier) NotifyAll(string, any)                  {}
