package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RoomPort is how other modules reach the room module.
type RoomPort interface {
	ListRooms(ctx context.Context) ([]canvas.RoomSummary, error)
	CreateRoom(ctx context.Context, name, createdBy string) (*canvas.RoomSummary, error)
	Snapshot(ctx context.Context, roomID string) (*canvas.CanvasState, error)
	History(ctx context.Context, roomID string, limit int) ([]canvas.ChatMessage, error)
	Document(ctx context.Context, roomID string) (*canvas.Document, error)
	Replace(ctx context.Context, doc canvas.Document) (*canvas.CanvasState, error)
}

// roomAdapter implements RoomPort over the room module's service container.
type roomAdapter struct {
	container mono.ServiceContainer
}

// NewRoomAdapter creates a RoomPort from the container received via
// SetDependencyServiceContainer.
func NewRoomAdapter(container mono.ServiceContainer) RoomPort {
	if container == nil {
		panic("room adapter requires non-nil ServiceContainer")
	}
	return &roomAdapter{container: container}
}

func (a *roomAdapter) ListRooms(ctx context.Context) ([]canvas.RoomSummary, error) {
	var resp ListRoomsResponse
	if err := callService(ctx, a.container, ServiceListRooms, &ListRoomsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (a *roomAdapter) CreateRoom(ctx context.Context, name, createdBy string) (*canvas.RoomSummary, error) {
	req := CreateRoomRequest{Name: name, CreatedBy: createdBy}
	var resp CreateRoomResponse
	if err := callService(ctx, a.container, ServiceCreateRoom, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, mapServiceError(resp.Error)
	}
	return &resp.Room, nil
}

func (a *roomAdapter) Snapshot(ctx context.Context, roomID string) (*canvas.CanvasState, error) {
	req := SnapshotRequest{RoomID: roomID}
	var resp SnapshotResponse
	if err := callService(ctx, a.container, ServiceSnapshot, &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, canvas.ErrRoomNotFound
	}
	return resp.State, nil
}

func (a *roomAdapter) History(ctx context.Context, roomID string, limit int) ([]canvas.ChatMessage, error) {
	req := HistoryRequest{RoomID: roomID, Limit: limit}
	var resp HistoryResponse
	if err := callService(ctx, a.container, ServiceHistory, &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, canvas.ErrRoomNotFound
	}
	return resp.Messages, nil
}

func (a *roomAdapter) Document(ctx context.Context, roomID string) (*canvas.Document, error) {
	req := DocumentRequest{RoomID: roomID}
	var resp DocumentResponse
	if err := callService(ctx, a.container, ServiceDocument, &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, canvas.ErrRoomNotFound
	}
	return resp.Document, nil
}

func (a *roomAdapter) Replace(ctx context.Context, doc canvas.Document) (*canvas.CanvasState, error) {
	req := ReplaceRequest{Document: doc}
	var resp ReplaceResponse
	if err := callService(ctx, a.container, ServiceReplace, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, mapServiceError(resp.Error)
	}
	return resp.State, nil
}

// callService runs one request-reply call against the room module.
func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

var serviceErrors = []error{
	canvas.ErrRoomNotFound,
	canvas.ErrRoomIDInvalid,
	canvas.ErrRoomNameEmpty,
	canvas.ErrRoomNameTooLong,
}

// mapServiceError turns an error string from a reply back into its sentinel,
// since errors lose their identity on the wire.
func mapServiceError(msg string) error {
	for _, sentinel := range serviceErrors {
		if strings.Contains(msg, sentinel.Error()) {
			return sentinel
		}
	}
	return errors.New(msg)
}
