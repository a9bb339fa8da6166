package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/example/canvas-sync/modules/room"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// Service moves documents between the room module and a Store. Saves of one
// room run one at a time; concurrent loads of one room share a single read.
type Service struct {
	store  Store
	rooms  room.RoomPort
	logger types.Logger

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*saveLock
}

// saveLock serializes the saves of one room. It is dropped from the map once
// no saver holds or waits for it.
type saveLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a persistence service.
func NewService(store Store, rooms room.RoomPort, logger types.Logger) *Service {
	return &Service{
		store:  store,
		rooms:  rooms,
		logger: logger,
		locks:  make(map[string]*saveLock),
	}
}

// Store returns the backing store.
func (s *Service) Store() Store {
	return s.store
}

// Save writes the room's full log, undone actions included.
func (s *Service) Save(ctx context.Context, roomID string) (*canvas.Document, error) {
	if err := canvas.ValidateRoomID(roomID); err != nil {
		return nil, err
	}

	lock := s.lockRoom(roomID)
	defer s.unlockRoom(roomID, lock)

	doc, err := s.rooms.Document(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, *doc); err != nil {
		s.logger.Error("Failed to save canvas", "roomID", roomID, "store", s.store.Kind(), "error", err)
		return nil, err
	}

	s.logger.Info("Canvas saved",
		"roomID", roomID,
		"actions", len(doc.Actions),
		"store", s.store.Kind())
	return doc, nil
}

// Load reads the room's document and replaces the room's log with it. The
// room is created under the saved name when it does not exist.
func (s *Service) Load(ctx context.Context, roomID string) (*canvas.CanvasState, error) {
	if err := canvas.ValidateRoomID(roomID); err != nil {
		return nil, err
	}

	v, err, shared := s.group.Do(roomID, func() (any, error) {
		doc, err := s.store.Load(ctx, roomID)
		if err != nil {
			return nil, err
		}
		doc.ID = roomID
		if strings.TrimSpace(doc.Name) == "" {
			doc.Name = "Room " + roomID
		}
		return s.rooms.Replace(ctx, *doc)
	})
	if err != nil {
		if !errors.Is(err, ErrCanvasNotFound) {
			s.logger.Error("Failed to load canvas", "roomID", roomID, "store", s.store.Kind(), "error", err)
		}
		return nil, err
	}

	state, ok := v.(*canvas.CanvasState)
	if !ok || state == nil {
		return nil, fmt.Errorf("unexpected load result for room %s", roomID)
	}
	s.logger.Info("Canvas loaded",
		"roomID", roomID,
		"actions", len(state.Actions),
		"shared", shared)
	return state, nil
}

// Autosave saves a room that may have been evicted already. Missing rooms
// are not an error.
func (s *Service) Autosave(ctx context.Context, roomID string) error {
	_, err := s.Save(ctx, roomID)
	if errors.Is(err, canvas.ErrRoomNotFound) {
		return nil
	}
	return err
}

// Ping checks the store's backend when it supports it.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) lockRoom(roomID string) *saveLock {
	s.mu.Lock()
	lock, ok := s.locks[roomID]
	if !ok {
		lock = &saveLock{}
		s.locks[roomID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *Service) unlockRoom(roomID string, lock *saveLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, roomID)
	}
}
