package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/canvas-sync/domain/canvas"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

// KVBucket is the jetstream bucket that holds canvas documents.
const KVBucket = "canvases"

// KVStore keeps documents in a jetstream key-value bucket keyed by room ID.
type KVStore struct {
	bucket kvjetstream.KVStoragePort
}

// NewKVStore creates a store over a bucket from the kv plugin.
func NewKVStore(bucket kvjetstream.KVStoragePort) *KVStore {
	return &KVStore{bucket: bucket}
}

// Kind returns the backend name.
func (s *KVStore) Kind() string {
	return BackendKV
}

// Save stores the document without expiry.
func (s *KVStore) Save(_ context.Context, doc canvas.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}
	if err := s.bucket.Set(doc.ID, data, 0); err != nil {
		return fmt.Errorf("failed to store canvas: %w", err)
	}
	return nil
}

// Load reads the document.
func (s *KVStore) Load(_ context.Context, roomID string) (*canvas.Document, error) {
	data, err := s.bucket.Get(roomID)
	if err != nil {
		if errors.Is(err, kvjetstream.ErrKeyNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, fmt.Errorf("failed to get canvas: %w", err)
	}
	// the bucket reports a missing key as nil data
	if data == nil {
		return nil, ErrCanvasNotFound
	}
	return decodeDocument(data, roomID)
}
