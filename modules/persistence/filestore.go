package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/canvas-sync/domain/canvas"
)

// FileStore keeps one pretty-printed JSON file per room: <dir>/<roomID>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Kind returns the backend name.
func (s *FileStore) Kind() string {
	return BackendFile
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes the document to a temporary file and renames it into place, so
// readers never see a partial file.
func (s *FileStore) Save(_ context.Context, doc canvas.Document) error {
	path, err := s.path(doc.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, doc.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write canvas: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move canvas into place: %w", err)
	}
	return nil
}

// Load reads the room's document.
func (s *FileStore) Load(_ context.Context, roomID string) (*canvas.Document, error) {
	path, err := s.path(roomID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCanvasNotFound
		}
		return nil, fmt.Errorf("failed to read canvas: %w", err)
	}
	return decodeDocument(data, roomID)
}

// path maps a room ID to its file. Only validated IDs reach the file system.
func (s *FileStore) path(roomID string) (string, error) {
	if err := canvas.ValidateRoomID(roomID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, roomID+".json"), nil
}

// decodeDocument parses a stored document. Older documents without an ID
// take the key they were stored under.
func decodeDocument(data []byte, roomID string) (*canvas.Document, error) {
	var doc canvas.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas: %w", err)
	}
	if doc.ID == "" {
		doc.ID = roomID
	}
	if doc.Actions == nil {
		doc.Actions = []canvas.Action{}
	}
	return &doc, nil
}
