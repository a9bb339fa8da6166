package api

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/example/canvas-sync/modules/broadcast"
	"github.com/example/canvas-sync/modules/persistence"
	"github.com/example/canvas-sync/modules/room"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redisstorage "github.com/gofiber/storage/redis/v3"
	"golang.org/x/time/rate"
)

// Config holds the HTTP server and connection limits.
type Config struct {
	Port        string
	CORSOrigins string

	// Per-connection websocket budgets. Cursor moves above budget are
	// dropped silently; other messages are answered with an error event.
	CursorRate   rate.Limit
	CursorBurst  int
	MessageRate  rate.Limit
	MessageBurst int

	// HTTPRateLimit is the number of REST requests allowed per client IP
	// per minute. Zero disables limiting.
	HTTPRateLimit int
	RedisAddr     string
	RedisPassword string

	// CallTimeout bounds save and load calls made for a websocket client.
	CallTimeout time.Duration
}

// DefaultConfig returns the default API settings.
func DefaultConfig() Config {
	return Config{
		Port:          "3001",
		CORSOrigins:   "*",
		CursorRate:    40,
		CursorBurst:   10,
		MessageRate:   100,
		MessageBurst:  200,
		HTTPRateLimit: 120,
		CallTimeout:   10 * time.Second,
	}
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	cfg      Config
	app      *fiber.App
	service  *room.Service
	rooms    room.RoomPort
	canvases persistence.CanvasPort
	hub      *broadcast.Hub
	storage  fiber.Storage
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"room", "persistence"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "room":
		m.rooms = room.NewRoomAdapter(container)
	case "persistence":
		m.canvases = persistence.NewCanvasAdapter(container)
	}
}

// SetRoomService sets the room service used on the websocket path (called
// from main.go).
func (m *APIModule) SetRoomService(service *room.Service) {
	m.service = service
}

// SetHub sets the broadcast hub (called from main.go).
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.rooms == nil {
		return fmt.Errorf("room adapter dependency not set")
	}
	if m.canvases == nil {
		return fmt.Errorf("persistence adapter dependency not set")
	}
	if m.service == nil {
		return fmt.Errorf("room service not set")
	}
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors (port in use, permission denied)
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "port", m.cfg.Port)
	return nil
}

// newApp builds the Fiber app with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Canvas Sync",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return c.Get("Upgrade") == "websocket"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	m.setupRoutes(app)
	return app
}

// rateLimiter limits REST requests per client IP. Counters live in Redis
// when an address is configured so limits hold across instances.
func (m *APIModule) rateLimiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        m.cfg.HTTPRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate_limited",
				Message: "Too many requests",
			})
		},
	}

	if m.cfg.RedisAddr != "" && m.storage == nil {
		host, port := parseRedisAddr(m.cfg.RedisAddr)
		m.storage = redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Password: m.cfg.RedisPassword,
			PoolSize: 10,
		})
		m.logger.Info("Rate limit counters stored in Redis", "addr", m.cfg.RedisAddr)
	}
	cfg.Storage = m.storage

	return limiter.New(cfg)
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			m.logger.Warn("Failed to close rate limit storage", "error", err)
		}
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	clients := 0
	if m.hub != nil {
		clients = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":              m.cfg.Port,
			"connected_clients": clients,
		},
	}
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

func parseRedisAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
