package api

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/example/canvas-sync/modules/export"
	"github.com/example/canvas-sync/modules/persistence"
	"github.com/example/canvas-sync/modules/room"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100

	// maxFrameSize bounds a single inbound websocket frame.
	maxFrameSize = 1 << 20
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}))

	// REST API v1
	api := app.Group("/api/v1")
	if m.cfg.HTTPRateLimit > 0 {
		api.Use(m.rateLimiter())
	}

	api.Get("/rooms", m.listRooms)
	api.Post("/rooms", m.createRoom)
	api.Get("/rooms/:id", m.getRoom)
	api.Get("/rooms/:id/history", m.getHistory)
	api.Post("/rooms/:id/save", m.saveRoom)
	api.Post("/rooms/:id/load", m.loadRoom)
	api.Get("/rooms/:id/export.pdf", m.exportRoom)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
			"participants":      m.service.Sessions().Count(),
		},
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	rooms, err := m.rooms.ListRooms(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to list rooms", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}

	response := RoomListResponse{
		Rooms: make([]RoomResponse, 0, len(rooms)),
		Total: len(rooms),
	}
	for _, r := range rooms {
		response.Rooms = append(response.Rooms, RoomResponse{
			RoomSummary: r,
			Connected:   m.hub.RoomClientCount(r.ID),
		})
	}
	return c.JSON(response)
}

// createRoom handles POST /api/v1/rooms.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	summary, err := m.rooms.CreateRoom(c.UserContext(), req.Name, "api")
	switch {
	case errors.Is(err, canvas.ErrRoomNameEmpty), errors.Is(err, canvas.ErrRoomNameTooLong):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case err != nil:
		m.logger.Error("Failed to create room", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "create_failed",
			Message: "Failed to create room",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(RoomResponse{RoomSummary: *summary})
}

// getRoom handles GET /api/v1/rooms/:id and returns the visible canvas.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	state, err := m.rooms.Snapshot(c.UserContext(), c.Params("id"))
	if err != nil {
		return m.roomError(c, err)
	}
	return c.JSON(state)
}

// getHistory handles GET /api/v1/rooms/:id/history.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	roomID := c.Params("id")
	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxHistoryLimit {
			limit = parsed
		}
	}

	messages, err := m.rooms.History(c.UserContext(), roomID, limit)
	if err != nil {
		return m.roomError(c, err)
	}
	return c.JSON(HistoryResponse{RoomID: roomID, Messages: messages})
}

// saveRoom handles POST /api/v1/rooms/:id/save.
func (m *APIModule) saveRoom(c *fiber.Ctx) error {
	resp, err := m.canvases.Save(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, canvas.ErrRoomNotFound) || errors.Is(err, canvas.ErrRoomIDInvalid) {
			return m.roomError(c, err)
		}
		m.logger.Error("Failed to save canvas", "roomID", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "save_failed",
			Message: "Failed to save canvas",
		})
	}
	return c.JSON(SaveResponse{RoomID: resp.RoomID, Actions: resp.Actions, SavedAt: resp.SavedAt})
}

// loadRoom handles POST /api/v1/rooms/:id/load. Connected members receive
// the loaded canvas.
func (m *APIModule) loadRoom(c *fiber.Ctx) error {
	state, err := m.canvases.Load(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, persistence.ErrCanvasNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "No saved canvas for room",
		})
	case errors.Is(err, canvas.ErrRoomIDInvalid):
		return m.roomError(c, err)
	case err != nil:
		m.logger.Error("Failed to load canvas", "roomID", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "load_failed",
			Message: "Failed to load canvas",
		})
	}
	return c.JSON(state)
}

// exportRoom handles GET /api/v1/rooms/:id/export.pdf.
func (m *APIModule) exportRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")
	state, err := m.rooms.Snapshot(c.UserContext(), roomID)
	if err != nil {
		return m.roomError(c, err)
	}

	var buf bytes.Buffer
	if err := export.RenderPDF(*state, &buf); err != nil {
		m.logger.Error("Failed to export canvas", "roomID", roomID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "export_failed",
			Message: "Failed to export canvas",
		})
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+roomID+`.pdf"`)
	return c.Send(buf.Bytes())
}

func (m *APIModule) roomError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, canvas.ErrRoomNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	case errors.Is(err, canvas.ErrRoomIDInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	default:
		m.logger.Error("Room lookup failed", "roomID", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "lookup_failed",
			Message: "Room lookup failed",
		})
	}
}

// handleWebSocket handles WebSocket connections at /ws. Every outbound
// frame goes through the hub, which owns the connection's writes.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	client := m.hub.Register(connID, c)
	defer func() {
		m.service.Leave(connID)
		m.hub.Unregister(client)
		m.logger.Info("WebSocket client disconnected", "connectionID", connID)
	}()

	c.SetReadLimit(maxFrameSize)
	m.logger.Info("WebSocket client connected", "connectionID", connID)
	m.service.SendRooms(connID)

	limits := newConnLimits(m.cfg)
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				m.logger.Debug("WebSocket read failed", "connectionID", connID, "error", err)
			}
			return
		}

		in, err := DecodeIntent(data)
		if err != nil {
			m.sendError(connID, err.Error())
			continue
		}
		if !limits.allow(in) {
			if _, cursor := in.(CursorMove); !cursor {
				m.sendError(connID, "Rate limit exceeded")
			}
			continue
		}
		m.dispatch(connID, in)
	}
}

// dispatch applies one intent for the connection.
func (m *APIModule) dispatch(connID string, in Intent) {
	var err error
	switch in := in.(type) {
	case JoinRoom:
		if _, err := m.service.Join(connID, in.RoomID, in.DisplayName); err != nil {
			m.sendError(connID, "Failed to join room: "+err.Error())
		}
		return
	case LeaveRoom:
		m.service.Leave(connID)
	case DrawAction:
		err = m.service.Draw(connID, canvas.Action(in))
	case MoveAction:
		err = m.service.Move(connID, in.ActionID, in.DeltaX, in.DeltaY)
	case CursorMove:
		// cursor moves outside a room are meaningless, not errors
		_ = m.service.Cursor(connID, canvas.Point(in))
	case Undo:
		err = m.service.Undo(connID)
	case Redo:
		err = m.service.Redo(connID)
	case ClearCanvas:
		err = m.service.Clear(connID)
	case GetRooms:
		m.service.SendRooms(connID)
	case CreateRoom:
		_, err = m.service.CreateRoom(connID, in.Name)
	case SaveCanvas:
		m.saveCanvas(connID)
	case LoadCanvas:
		m.loadCanvas(connID, in.RoomID)
	case SendChat:
		err = m.service.Chat(connID, in.RoomID, canvas.ChatMessage{Text: in.Text})
		if errors.Is(err, canvas.ErrNotInRoom) {
			return
		}
	default:
		err = ErrUnknownType
	}

	if err != nil {
		m.sendError(connID, errorMessage(err))
	}
}

// saveCanvas saves the caller's current room.
func (m *APIModule) saveCanvas(connID string) {
	roomID, ok := m.service.Sessions().RoomOf(connID)
	if !ok {
		m.sendError(connID, errorMessage(canvas.ErrNotInRoom))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CallTimeout)
	defer cancel()

	if _, err := m.canvases.Save(ctx, roomID); err != nil {
		m.logger.Warn("Save requested over websocket failed", "connectionID", connID, "roomID", roomID, "error", err)
		m.sendError(connID, "Failed to save canvas")
		return
	}
	m.hub.NotifyClient(connID, room.EventCanvasSaved, room.CanvasSavedPayload{RoomID: roomID})
}

// loadCanvas loads a saved canvas into its room. The room's members receive
// the new canvas state; the caller also gets canvas_loaded. An empty roomID
// means the caller's current room.
func (m *APIModule) loadCanvas(connID, roomID string) {
	if roomID == "" {
		current, ok := m.service.Sessions().RoomOf(connID)
		if !ok {
			m.sendError(connID, errorMessage(canvas.ErrNotInRoom))
			return
		}
		roomID = current
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CallTimeout)
	defer cancel()

	state, err := m.canvases.Load(ctx, roomID)
	if err != nil {
		m.logger.Warn("Load requested over websocket failed", "connectionID", connID, "roomID", roomID, "error", err)
		m.sendError(connID, "Failed to load canvas")
		return
	}
	m.hub.NotifyClient(connID, room.EventCanvasLoaded, state)
}

func (m *APIModule) sendError(connID, message string) {
	m.hub.NotifyClient(connID, room.EventError, room.ErrorPayload{Message: message})
}

func errorMessage(err error) string {
	if errors.Is(err, canvas.ErrNotInRoom) {
		return "Join a room first"
	}
	return err.Error()
}
