package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/example/canvas-sync/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the live rooms and exposes them to other modules through the
// service container.
type Module struct {
	cfg      Config
	service  *Service
	janitor  *janitor
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the room module.
func NewModule(logger types.Logger, opts ...Option) (*Module, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := NewRegistry(cfg.MaxChatHistory)
	service, err := NewService(registry, NewSessionManager(registry), logger)
	if err != nil {
		return nil, err
	}

	return &Module{
		cfg:     cfg,
		service: service,
		logger:  logger,
	}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "room"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.ParticipantLeftV1.ToBase(),
	}
}

// SetNotifier wires the connection hub that receives room deltas.
func (m *Module) SetNotifier(n Notifier) {
	m.service.SetNotifier(n)
}

// Service returns the room service used by the connection layer.
func (m *Module) Service() *Service {
	return m.service
}

// Start creates the default room and starts the idle room janitor.
func (m *Module) Start(_ context.Context) error {
	m.service.Registry().CreateRoom(DefaultRoomID, DefaultRoomName)

	if m.cfg.IdleTTL > 0 {
		m.janitor = newJanitor(m.service.Registry(), m.cfg.IdleTTL, m.cfg.SweepInterval, m.logger, DefaultRoomID)
		m.janitor.start()
	}

	m.logger.Info("Room module started",
		"defaultRoom", DefaultRoomID,
		"idleTTL", m.cfg.IdleTTL,
		"maxChatHistory", m.cfg.MaxChatHistory)
	return nil
}

// Stop stops the janitor.
func (m *Module) Stop(ctx context.Context) error {
	if m.janitor != nil {
		if err := m.janitor.stop(ctx); err != nil {
			m.logger.Warn("Room janitor shutdown timeout exceeded", "error", err)
			return err
		}
	}
	m.logger.Info("Room module stopped")
	return nil
}

// Health reports the number of live rooms and connected participants.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":        m.service.Registry().RoomCount(),
			"participants": m.service.Sessions().Count(),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceListRooms,
		json.Unmarshal,
		json.Marshal,
		m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceCreateRoom,
		json.Unmarshal,
		json.Marshal,
		m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateRoom, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceSnapshot,
		json.Unmarshal,
		json.Marshal,
		m.handleSnapshot,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSnapshot, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceHistory,
		json.Unmarshal,
		json.Marshal,
		m.handleHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceHistory, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceDocument,
		json.Unmarshal,
		json.Marshal,
		m.handleDocument,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDocument, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceReplace,
		json.Unmarshal,
		json.Marshal,
		m.handleReplace,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceReplace, err)
	}

	m.logger.Info("Registered room services",
		"services", []string{ServiceListRooms, ServiceCreateRoom, ServiceSnapshot, ServiceHistory, ServiceDocument, ServiceReplace})
	return nil
}

func (m *Module) handleListRooms(_ context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms := m.service.ListRooms()
	return ListRoomsResponse{Rooms: rooms, Total: len(rooms)}, nil
}

// handleCreateRoom reports validation failures in the response body so the
// caller can tell them apart from transport errors.
func (m *Module) handleCreateRoom(_ context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	summary, err := m.service.CreateRoom(req.CreatedBy, req.Name)
	if err != nil {
		return CreateRoomResponse{Error: err.Error()}, nil
	}
	return CreateRoomResponse{Room: summary}, nil
}

func (m *Module) handleSnapshot(_ context.Context, req SnapshotRequest, _ *mono.Msg) (SnapshotResponse, error) {
	state, err := m.service.Snapshot(req.RoomID)
	if errors.Is(err, canvas.ErrRoomNotFound) {
		return SnapshotResponse{Found: false}, nil
	}
	if err != nil {
		return SnapshotResponse{}, err
	}
	return SnapshotResponse{State: state, Found: true}, nil
}

func (m *Module) handleHistory(_ context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	msgs, err := m.service.History(req.RoomID, req.Limit)
	if errors.Is(err, canvas.ErrRoomNotFound) {
		return HistoryResponse{Found: false}, nil
	}
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{Messages: msgs, Found: true}, nil
}

func (m *Module) handleDocument(_ context.Context, req DocumentRequest, _ *mono.Msg) (DocumentResponse, error) {
	doc, err := m.service.Document(req.RoomID)
	if errors.Is(err, canvas.ErrRoomNotFound) {
		return DocumentResponse{Found: false}, nil
	}
	if err != nil {
		return DocumentResponse{}, err
	}
	return DocumentResponse{Document: doc, Found: true}, nil
}

func (m *Module) handleReplace(_ context.Context, req ReplaceRequest, _ *mono.Msg) (ReplaceResponse, error) {
	state, err := m.service.ReplaceCanvas(req.Document.ID, req.Document.Name, req.Document.Actions)
	if err != nil {
		return ReplaceResponse{Error: err.Error()}, nil
	}
	return ReplaceResponse{State: state}, nil
}
