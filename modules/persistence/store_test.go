package persistence

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/go-monolith/mono"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testRedisAddr = "localhost:6379"

func sampleDocument(id string) canvas.Document {
	return canvas.Document{
		ID:   id,
		Name: "Sketch " + id,
		Actions: []canvas.Action{
			{
				ID:           "a1",
				OriginUserID: "c1",
				Kind:         canvas.KindStroke,
				Tool:         canvas.ToolBrush,
				Points:       []canvas.Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
				Color:        "#ef4444",
				StrokeWidth:  4,
				CreatedAt:    1700000000000,
			},
			{
				ID:           "a2",
				OriginUserID: "c2",
				Kind:         canvas.KindShape,
				Tool:         canvas.ToolRectangle,
				Points:       []canvas.Point{{X: 10, Y: 10}, {X: 20, Y: 20}},
				Color:        "#3b82f6",
				StrokeWidth:  2,
				Filled:       true,
				CreatedAt:    1700000000500,
				Undone:       true,
			},
		},
		SavedAt: 1700000001000,
	}
}

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	roomID := "room_" + uuid.New().String()[:8]

	t.Run("missing room", func(t *testing.T) {
		_, err := store.Load(ctx, roomID)
		assert.ErrorIs(t, err, ErrCanvasNotFound)
	})

	t.Run("round trip keeps undone actions", func(t *testing.T) {
		doc := sampleDocument(roomID)
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, doc, *loaded)
	})

	t.Run("save overwrites", func(t *testing.T) {
		doc := sampleDocument(roomID)
		doc.Name = "Renamed"
		doc.Actions = doc.Actions[:1]
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)
		assert.Len(t, loaded.Actions, 1)
	})

	t.Run("empty log", func(t *testing.T) {
		doc := canvas.Document{ID: roomID + "-empty", Name: "Empty", Actions: []canvas.Action{}}
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx, doc.ID)
		require.NoError(t, err)
		assert.NotNil(t, loaded.Actions)
		assert.Empty(t, loaded.Actions)
	})
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	storeContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sampleDocument("r1")))

	data, err := os.ReadFile(filepath.Join(dir, "r1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"id\": \"r1\"")
	assert.Contains(t, string(data), "\"savedAt\": 1700000001000")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_RejectsUnsafeIDs(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"../escape", "a/b", "", "dot.json"} {
		_, err := store.Load(context.Background(), id)
		assert.ErrorIs(t, err, canvas.ErrRoomIDInvalid, id)

		err = store.Save(context.Background(), canvas.Document{ID: id})
		assert.ErrorIs(t, err, canvas.ErrRoomIDInvalid, id)
	}
}

func TestFileStore_LegacyDocumentWithoutID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	legacy := `{"name":"Old","actions":[{"id":"x","kind":"stroke","tool":"brush","points":[{"x":0,"y":0},{"x":1,"y":1}]}],"savedAt":5}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte(legacy), 0o644))

	doc, err := store.Load(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "old", doc.ID)
	assert.Equal(t, "Old", doc.Name)
	require.Len(t, doc.Actions, 1)
}

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestSQLStore(t *testing.T) {
	store, err := NewSQLStore(setupTestDB(t))
	require.NoError(t, err)
	storeContract(t, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLStore_SingleRowPerRoom(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleDocument("r1")))
	require.NoError(t, store.Save(ctx, sampleDocument("r1")))

	var count int64
	require.NoError(t, db.Model(&CanvasRecord{}).Where("room_id = ?", "r1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	prefix := "test:canvas:" + uuid.New().String()[:8] + ":"
	store := NewRedisStore(client, prefix)
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	storeContract(t, store)
	assert.NoError(t, store.Ping(ctx))
}

func TestKVStore(t *testing.T) {
	// the embedded server needs a loopback listener
	if l, err := net.Listen("tcp", "127.0.0.1:0"); err != nil {
		t.Skipf("loopback networking not available: %v", err)
	} else {
		l.Close()
	}

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
		mono.WithJetStreamStorageDir(t.TempDir()),
	)
	require.NoError(t, err)

	plugin, err := kvjetstream.New(kvjetstream.Config{
		Buckets: []kvjetstream.BucketConfig{
			{
				Name:        KVBucket,
				Description: "Test canvases",
				Storage:     kvjetstream.MemoryStorage,
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, app.RegisterPlugin(plugin, "kv"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	bucket := plugin.Bucket(KVBucket)
	require.NotNil(t, bucket)
	storeContract(t, NewKVStore(bucket))
}
