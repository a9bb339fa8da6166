package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/example/canvas-sync/events"
	"github.com/example/canvas-sync/modules/room"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// BroadcastModule owns the connection hub and relays room events to it.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)
var _ room.Notifier = (*Hub)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(sendBuffer int, pingInterval time.Duration) *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(sendBuffer, pingInterval),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop closes every connection and waits for the hub to finish.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: RoomCreated")
	return nil
}

// handleRoomCreated announces a new room to every connection.
func (m *BroadcastModule) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] Broadcasting room created: %s", event.RoomName)

	m.hub.NotifyAll(room.EventRoomCreated, canvas.RoomSummary{
		ID:        event.RoomID,
		Name:      event.RoomName,
		UserCount: event.UserCount,
		CreatedAt: event.CreatedAt,
	})
	return nil
}

// GetHub returns the hub for the connection layer and the room service.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}
