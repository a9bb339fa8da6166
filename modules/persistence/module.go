package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/canvas-sync/events"
	"github.com/example/canvas-sync/modules/room"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
	"github.com/redis/go-redis/v9"
)

// Config selects and configures the canvas store.
type Config struct {
	Backend         string
	DataDir         string
	DBPath          string
	DBDebug         bool
	RedisAddr       string
	RedisPassword   string
	AutosaveOnEmpty bool
	AutosaveTimeout time.Duration
}

// DefaultConfig returns the default persistence settings.
func DefaultConfig() Config {
	return Config{
		Backend:         BackendFile,
		DataDir:         "data",
		DBPath:          "canvas.db",
		RedisAddr:       "localhost:6379",
		AutosaveOnEmpty: true,
		AutosaveTimeout: 5 * time.Second,
	}
}

// Module is the persistence collaborator of the room module.
type Module struct {
	cfg     Config
	kv      *kvjetstream.PluginModule
	store   Store
	rooms   room.RoomPort
	service *Service
	logger  types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the persistence module.
func NewModule(cfg Config, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "persistence"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"room"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "room" {
		m.rooms = room.NewRoomAdapter(container)
	}
}

// SetPlugin receives the KV plugin from the framework. It is only registered
// when the kv backend is selected.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "kv" {
		return
	}
	kv, ok := plugin.(*kvjetstream.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for kv",
			"alias", alias,
			"expected", "*kvjetstream.PluginModule")
		return
	}
	m.kv = kv
	m.logger.Info("Received KV plugin", "alias", alias)
}

// Start opens the configured store.
func (m *Module) Start(_ context.Context) error {
	if m.rooms == nil {
		return fmt.Errorf("room dependency not set")
	}

	store, err := m.openStore()
	if err != nil {
		return err
	}
	m.store = store
	m.service = NewService(store, m.rooms, m.logger)

	m.logger.Info("Persistence module started",
		"store", store.Kind(),
		"autosave", m.cfg.AutosaveOnEmpty)
	return nil
}

func (m *Module) openStore() (Store, error) {
	switch m.cfg.Backend {
	case BackendFile, "":
		return NewFileStore(m.cfg.DataDir)
	case BackendSQLite:
		return OpenSQLStore(m.cfg.DBPath, m.cfg.DBDebug)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     m.cfg.RedisAddr,
			Password: m.cfg.RedisPassword,
		})
		return NewRedisStore(client, DefaultRedisPrefix), nil
	case BackendKV:
		if m.kv == nil {
			return nil, fmt.Errorf("required plugin 'kv' not registered")
		}
		bucket := m.kv.Bucket(KVBucket)
		if bucket == nil {
			return nil, fmt.Errorf("bucket '%s' not found in KV plugin", KVBucket)
		}
		return NewKVStore(bucket), nil
	default:
		return nil, fmt.Errorf("unknown canvas store %q", m.cfg.Backend)
	}
}

// Stop closes the store.
func (m *Module) Stop(_ context.Context) error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			m.logger.Warn("Failed to close canvas store", "error", err)
		}
	}
	m.logger.Info("Persistence module stopped")
	return nil
}

// Health checks the store's backend.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}
	if err := m.service.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("store ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"store": m.store.Kind(),
		},
	}
}

// Service returns the persistence service.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSave, json.Unmarshal, json.Marshal, m.handleSave,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSave, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLoad, json.Unmarshal, json.Marshal, m.handleLoad,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLoad, err)
	}

	m.logger.Info("Registered persistence services", "services", []string{ServiceSave, ServiceLoad})
	return nil
}

// RegisterEventConsumers registers the autosave consumer.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ParticipantLeftV1, m.handleParticipantLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register ParticipantLeft consumer: %w", err)
	}
	return nil
}

func (m *Module) handleSave(ctx context.Context, req SaveRequest, _ *mono.Msg) (SaveResponse, error) {
	doc, err := m.service.Save(ctx, req.RoomID)
	if err != nil {
		return SaveResponse{RoomID: req.RoomID, Error: err.Error()}, nil
	}
	return SaveResponse{RoomID: doc.ID, Actions: len(doc.Actions), SavedAt: doc.SavedAt}, nil
}

func (m *Module) handleLoad(ctx context.Context, req LoadRequest, _ *mono.Msg) (LoadResponse, error) {
	state, err := m.service.Load(ctx, req.RoomID)
	if errors.Is(err, ErrCanvasNotFound) {
		return LoadResponse{Found: false}, nil
	}
	if err != nil {
		return LoadResponse{Error: err.Error()}, nil
	}
	return LoadResponse{State: state, Found: true}, nil
}

// handleParticipantLeft saves a room once its last participant is gone.
func (m *Module) handleParticipantLeft(ctx context.Context, event events.ParticipantLeftEvent, _ *mono.Msg) error {
	if !m.cfg.AutosaveOnEmpty || event.Remaining > 0 || m.service == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.AutosaveTimeout)
	defer cancel()

	if err := m.service.Autosave(ctx, event.RoomID); err != nil {
		m.logger.Warn("Autosave failed", "roomID", event.RoomID, "error", err)
	}
	return nil
}
