// Package persistence saves and loads whole canvas documents. A document is a
// full snapshot of a room's action log; loading replaces the room's log.
package persistence

import (
	"context"
	"errors"

	"github.com/example/canvas-sync/domain/canvas"
)

// ErrCanvasNotFound is returned when no document is stored for a room.
var ErrCanvasNotFound = errors.New("canvas not found")

// Store is a backend for canvas documents, keyed by room ID.
type Store interface {
	Save(ctx context.Context, doc canvas.Document) error
	Load(ctx context.Context, roomID string) (*canvas.Document, error)
	Kind() string
}

// Pinger is implemented by stores that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend names accepted by CANVAS_STORE.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendKV     = "kv"
)
