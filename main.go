package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/canvas-sync/modules/api"
	"github.com/example/canvas-sync/modules/broadcast"
	"github.com/example/canvas-sync/modules/persistence"
	"github.com/example/canvas-sync/modules/room"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Canvas Sync - Collaborative Whiteboard Server ===")

	// Load configuration from environment
	apiCfg := api.DefaultConfig()
	apiCfg.Port = getEnv("PORT", apiCfg.Port)
	apiCfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", apiCfg.CORSOrigins)
	apiCfg.CursorRate = rate.Limit(getEnvInt("CURSOR_RATE", int(apiCfg.CursorRate)))
	apiCfg.CursorBurst = getEnvInt("CURSOR_BURST", apiCfg.CursorBurst)
	apiCfg.MessageRate = rate.Limit(getEnvInt("MESSAGE_RATE", int(apiCfg.MessageRate)))
	apiCfg.MessageBurst = getEnvInt("MESSAGE_BURST", apiCfg.MessageBurst)
	apiCfg.HTTPRateLimit = getEnvInt("HTTP_RATE_LIMIT", apiCfg.HTTPRateLimit)
	apiCfg.RedisAddr = getEnv("REDIS_ADDR", "")
	apiCfg.RedisPassword = getEnv("REDIS_PASSWORD", "")

	storeCfg := persistence.DefaultConfig()
	storeCfg.Backend = getEnv("CANVAS_STORE", storeCfg.Backend)
	storeCfg.DataDir = getEnv("DATA_DIR", storeCfg.DataDir)
	storeCfg.DBPath = getEnv("DB_PATH", storeCfg.DBPath)
	storeCfg.DBDebug = getEnvBool("DB_DEBUG", false)
	storeCfg.RedisAddr = getEnv("REDIS_ADDR", storeCfg.RedisAddr)
	storeCfg.RedisPassword = apiCfg.RedisPassword
	storeCfg.AutosaveOnEmpty = getEnvBool("AUTOSAVE_ON_EMPTY", storeCfg.AutosaveOnEmpty)

	idleTTL := getEnvDuration("ROOM_IDLE_TTL", 30*time.Minute)
	sweepInterval := getEnvDuration("ROOM_SWEEP_INTERVAL", time.Minute)
	jetStreamDir := getEnv("JETSTREAM_DIR", "data/jetstream")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(jetStreamDir),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	// The kv plugin is only needed by the jetstream canvas store.
	// Plugins must be registered before modules.
	if storeCfg.Backend == persistence.BackendKV {
		kvStore, err := kvjetstream.New(kvjetstream.Config{
			Buckets: []kvjetstream.BucketConfig{
				{
					Name:        persistence.KVBucket,
					Description: "Saved canvases, one key per room",
					Storage:     kvjetstream.FileStorage,
				},
			},
		})
		if err != nil {
			log.Fatalf("Failed to create KV plugin: %v", err)
		}
		if err := app.RegisterPlugin(kvStore, "kv"); err != nil {
			log.Fatalf("Failed to register KV plugin: %v", err)
		}
	}

	// Create modules
	roomModule, err := room.NewModule(
		logger.WithModule("room"),
		room.WithIdleTTL(idleTTL),
		room.WithSweepInterval(sweepInterval),
	)
	if err != nil {
		log.Fatalf("Failed to create room module: %v", err)
	}
	broadcastModule := broadcast.NewModule(
		getEnvInt("WS_SEND_BUFFER", broadcast.DefaultSendBuffer),
		getEnvDuration("WS_PING_INTERVAL", broadcast.DefaultPingInterval),
	)
	persistenceModule := persistence.NewModule(storeCfg, logger.WithModule("persistence"))
	apiModule := api.NewModule(apiCfg, logger.WithModule("api"))

	// Inject the hub and the room service directly
	// (neither is exposed via ServiceContainer; the websocket path is too hot for request-reply)
	roomModule.SetNotifier(broadcastModule.GetHub())
	apiModule.SetRoomService(roomModule.Service())
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - room: Core domain (ServiceProviderModule + EventEmitterModule)
	// - broadcast: WebSocket hub + event consumer
	// - persistence: Canvas stores (depends on room, consumes room events)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on room and persistence)
	app.Register(roomModule)
	app.Register(broadcastModule)
	app.Register(persistenceModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(apiCfg, storeCfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(apiCfg api.Config, storeCfg persistence.Config) {
	port := apiCfg.Port

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - Canvas store: %s", storeCfg.Backend)
	log.Printf("  - Autosave when a room empties: %t", storeCfg.AutosaveOnEmpty)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                        - Health check")
	log.Println("  GET    /api/v1/rooms                  - List all rooms")
	log.Println("  POST   /api/v1/rooms                  - Create a new room")
	log.Println("  GET    /api/v1/rooms/:id              - Get the room's canvas")
	log.Println("  GET    /api/v1/rooms/:id/history      - Get chat history")
	log.Println("  POST   /api/v1/rooms/:id/save         - Save the canvas")
	log.Println("  POST   /api/v1/rooms/:id/load         - Load the saved canvas")
	log.Println("  GET    /api/v1/rooms/:id/export.pdf   - Export the canvas as PDF")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Frames: {\"type\": <event>, \"payload\": {...}}")
	log.Println("  Types: join_room, leave_room, draw_action, move_action, cursor_move, undo, redo,")
	log.Println("         clear_canvas, get_rooms, create_room, save_canvas, load_canvas, send_chat")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool returns environment variable as bool or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}
