package room

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

type delivery struct {
	scope   string // room, client or all
	target  string
	event   string
	payload any
	exclude string
}

// recordingNotifier keeps every delivery and the subscription table.
type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	subs       map[string]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{subs: make(map[string]string)}
}

func (n *recordingNotifier) Subscribe(connID, roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs[connID] = roomID
}

func (n *recordingNotifier) Unsubscribe(connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, connID)
}

func (n *recordingNotifier) NotifyRoom(roomID, event string, payload any, exclude string) {
	n.record(delivery{scope: "room", target: roomID, event: event, payload: payload, exclude: exclude})
}

func (n *recordingNotifier) NotifyClient(connID, event string, payload any) {
	n.record(delivery{scope: "client", target: connID, event: event, payload: payload})
}

func (n *recordingNotifier) NotifyAll(event string, payload any) {
	n.record(delivery{scope: "all", event: event, payload: payload})
}

func (n *recordingNotifier) record(d delivery) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, d)
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.deliveries))
	for _, d := range n.deliveries {
		out = append(out, d.event)
	}
	return out
}

func (n *recordingNotifier) last(event string) (delivery, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.deliveries) - 1; i >= 0; i-- {
		if n.deliveries[i].event == event {
			return n.deliveries[i], true
		}
	}
	return delivery{}, false
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = nil
}

func newTestService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	g := NewRegistry(0)
	svc, err := NewService(g, NewSessionManager(g), &mockLogger{})
	require.NoError(t, err)
	n := newRecordingNotifier()
	svc.SetNotifier(n)
	return svc, n
}

func TestService_JoinDeliveries(t *testing.T) {
	svc, n := newTestService(t)

	_, err := svc.Join("c1", "r1", "alice")
	require.NoError(t, err)
	n.reset()

	p, err := svc.Join("c2", "r1", "  bob  ")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.DisplayName)

	assert.Equal(t, []string{EventUserJoined, EventCanvasState, EventChatHistory, EventUsersUpdate}, n.events())

	joined, _ := n.last(EventUserJoined)
	assert.Equal(t, "c2", joined.exclude)

	state, _ := n.last(EventCanvasState)
	assert.Equal(t, "client", state.scope)
	assert.Equal(t, "c2", state.target)

	users, _ := n.last(EventUsersUpdate)
	assert.Equal(t, "room", users.scope)
	assert.Empty(t, users.exclude)
	assert.Len(t, users.payload, 2)

	assert.Equal(t, "r1", n.subs["c2"])
}

func TestService_JoinSameRoomResendsState(t *testing.T) {
	svc, n := newTestService(t)
	first, err := svc.Join("c1", "r1", "alice")
	require.NoError(t, err)
	_, err = svc.Join("c2", "r1", "bob")
	require.NoError(t, err)
	n.reset()

	again, err := svc.Join("c1", "r1", "alice")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	assert.Equal(t, []string{EventCanvasState, EventChatHistory}, n.events())
	state, _ := n.last(EventCanvasState)
	assert.Equal(t, "c1", state.target)
	history, _ := n.last(EventChatHistory)
	assert.Equal(t, "c1", history.target)

	assert.Equal(t, "r1", n.subs["c1"])
	assert.Len(t, svc.Registry().Participants("r1"), 2)
}

func TestService_JoinDefaultsDisplayName(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Join("c1", "r1", "   ")
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", p.DisplayName)
}

func TestService_JoinValidation(t *testing.T) {
	svc, n := newTestService(t)

	_, err := svc.Join("c1", "bad room!", "alice")
	assert.ErrorIs(t, err, canvas.ErrRoomIDInvalid)

	_, err = svc.Join("c1", "r1", strings.Repeat("x", canvas.MaxDisplayNameLength+1))
	assert.ErrorIs(t, err, canvas.ErrDisplayNameTooLong)

	assert.Empty(t, n.events())
}

func TestService_Leave(t *testing.T) {
	svc, n := newTestService(t)
	svc.Join("c1", "r1", "alice")
	svc.Join("c2", "r1", "bob")
	n.reset()

	assert.True(t, svc.Leave("c1"))
	assert.Equal(t, []string{EventUserLeft, EventUsersUpdate}, n.events())

	left, _ := n.last(EventUserLeft)
	assert.Equal(t, UserLeftPayload{UserID: "c1"}, left.payload)
	_, subscribed := n.subs["c1"]
	assert.False(t, subscribed)

	assert.False(t, svc.Leave("c1"))
}

func TestService_DrawExcludesCaller(t *testing.T) {
	svc, n := newTestService(t)
	svc.Join("c1", "r1", "alice")
	n.reset()

	a := stroke("", "spoofed")
	a.Tool = canvas.ToolEraser
	a.Color = "#123456"
	require.NoError(t, svc.Draw("c1", a))

	d, ok := n.last(EventDrawAction)
	require.True(t, ok)
	assert.Equal(t, "c1", d.exclude)

	got := d.payload.(canvas.Action)
	assert.Equal(t, "c1", got.OriginUserID)
	assert.Equal(t, canvas.EraseColor, got.Color)
	assert.NotEmpty(t, got.ID)
	assert.NotZero(t, got.CreatedAt)
}

func TestService_DrawDropsShortAction(t *testing.T) {
	svc, n := newTestService(t)
	svc.Join("c1", "r1", "alice")
	n.reset()

	require.NoError(t, svc.Draw("c1", stroke("dot", "c1", canvas.Point{X: 1, Y: 1})))
	assert.Empty(t, n.events())
}

func TestService_DrawRequiresRoom(t *testing.T) {
	svc, _ := newTestService(t)
	assert.ErrorIs(t, svc.Draw("c1", stroke("A", "c1")), canvas.ErrNotInRoom)
}

func TestService_DrawRejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Join("c1", "r1", "alice")

	a := stroke("A", "c1")
	a.Tool = canvas.ToolSelect
	assert.ErrorIs(t, svc.Draw("c1", a), canvas.ErrInvalidTool)
}

func TestService_MoveAndCursor(t *testing.T) {
	svc, n := newTestService(t)
	svc.Join("c1", "r1", "alice")
	require.NoError(t, svc.Draw("c1", stroke("A", "c1")))
	n.reset()

	require.NoError(t, svc.Move("c1", "A", 2, 3))
	moved, ok := n.last(EventActionMoved)
	require.True(t, ok)
	assert.Equal(t, "c1", moved.exclude)
	payload := moved.payload.(ActionMovedPayload)
	assert.Equal(t, canvas.Point{X: 2, Y: 3}, payload.Action.Points[0])

	require.NoError(t, svc.Move("c1", "A", math.NaN(), 1))
	require.NoError(t, svc.Move("c1", "missing", 1, 1))
	assert.Equal(t, []string{EventActionMoved}, n.events())

	require.NoError(t, svc.Cursor("c1", canvas.Point{X: 4, Y: 5}))
	cursor, ok := n.last(EventCursorUpdate)
	require.True(t, ok)
	assert.Equal(t, CursorUpdatePayload{OriginUserID: "c1", Position: canvas.Point{X: 4, Y: 5}}, cursor.payload)
	assert.Equal(t, "c1", cursor.exclude)
}

func TestService_UndoRedoBroadcastToWholeRoom(t *testing.T) {
	svc, n := newTestService(t)
	svc.Join("c1", "r1", "alice")
	svc.Join("c2", "r1", "bob")
	require.NoError(t, svc.Draw("c1", stroke("A", "c1")))
	n.reset()

	// anyone may undo anyone's action
	require.NoError(t, svc.Undo("c2"))
	undo, ok := n.last(EventUndoApplied)
	require.True(t, ok)
	assert.Empty(t, undo.exclude)
	assert.Equal(t, HistoryAppliedPayload{OriginUserID: "c2", ActionID: "A"}, undo.payload)

	require.NoError(t, svc.Redo("c1"))
	redo, ok := n.last(EventRedoApplied)
	require.True(t, ok)
	assert.Empty(t, redo.exclude)

	n.reset()
	require.NoError(t, svc.Redo("c1"))
	assert.Empty(t, n.events(), "nothing to redo")
}

func TestService_Clear(t *testing.T) {
	svc, n := newTestService(t)
	svc.Join("c1", "r1", "alice")
	require.NoError(t, svc.Draw("c1", stroke("A", "c1")))
	n.reset()

	require.NoError(t, svc.Clear("c1"))
	cleared, ok := n.last(EventCanvasCleared)
	require.True(t, ok)
	assert.Equal(t, CanvasClearedPayload{ActorID: "c1"}, cleared.payload)

	state, err := svc.Snapshot("r1")
	require.NoError(t, err)
	assert.Empty(t, state.Actions)
}

func TestService_Chat(t *testing.T) {
	svc, n := newTestService(t)
	p, _ := svc.Join("c1", "r1", "alice")
	n.reset()

	require.NoError(t, svc.Chat("c1", "r1", canvas.ChatMessage{Text: "hello", Username: "mallory", UserID: "x"}))

	d, ok := n.last(EventChatMessage)
	require.True(t, ok)
	assert.Empty(t, d.exclude)
	msg := d.payload.(canvas.ChatMessage)
	assert.Equal(t, "c1", msg.UserID)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, p.Color, msg.Color)
	assert.NotEmpty(t, msg.ID)

	history, err := svc.History("r1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Text)

	assert.ErrorIs(t, svc.Chat("c1", "other", canvas.ChatMessage{Text: "hi"}), canvas.ErrNotInRoom)
	assert.ErrorIs(t, svc.Chat("c1", "r1", canvas.ChatMessage{Text: "  "}), canvas.ErrMessageEmpty)
	assert.ErrorIs(t, svc.Chat("c9", "", canvas.ChatMessage{Text: "hi"}), canvas.ErrNotInRoom)
}

func TestService_CreateRoomWithoutBus(t *testing.T) {
	svc, n := newTestService(t)

	summary, err := svc.CreateRoom("c1", "  Design Review ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(summary.ID, "room_"))
	assert.Equal(t, "Design Review", summary.Name)

	all, ok := n.last(EventRoomCreated)
	require.True(t, ok)
	assert.Equal(t, "all", all.scope)

	list, ok := n.last(EventRoomsList)
	require.True(t, ok)
	assert.Equal(t, "c1", list.target)

	_, err = svc.CreateRoom("c1", "")
	assert.ErrorIs(t, err, canvas.ErrRoomNameEmpty)
}

func TestService_ReplaceCanvas(t *testing.T) {
	svc, n := newTestService(t)
	svc.Join("c1", "r1", "alice")
	n.reset()

	state, err := svc.ReplaceCanvas("r1", "Loaded", []canvas.Action{stroke("A", "c9"), stroke("B", "c9")})
	require.NoError(t, err)
	assert.Len(t, state.Actions, 2)

	d, ok := n.last(EventCanvasState)
	require.True(t, ok)
	assert.Equal(t, "room", d.scope)
	assert.Equal(t, "r1", d.target)

	_, err = svc.ReplaceCanvas("../etc", "", nil)
	assert.ErrorIs(t, err, canvas.ErrRoomIDInvalid)
}

func TestService_UnknownRoomLookups(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Snapshot("ghost")
	assert.ErrorIs(t, err, canvas.ErrRoomNotFound)
	_, err = svc.Document("ghost")
	assert.ErrorIs(t, err, canvas.ErrRoomNotFound)
	_, err = svc.History("ghost", 10)
	assert.ErrorIs(t, err, canvas.ErrRoomNotFound)
}
