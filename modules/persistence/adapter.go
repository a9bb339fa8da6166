package persistence

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

// ErrSaveFailed and ErrLoadFailed wrap store failures reported by the
// persistence module.
var (
	ErrSaveFailed = errors.New("failed to save canvas")
	ErrLoadFailed = errors.New("failed to load canvas")
)

// CanvasPort is how other modules save and load canvases.
type CanvasPort interface {
	Save(ctx context.Context, roomID string) (*SaveResponse, error)
	Load(ctx context.Context, roomID string) (*canvas.CanvasState, error)
}

// canvasAdapter implements CanvasPort over the persistence module's service
// container.
type canvasAdapter struct {
	container mono.ServiceContainer
}

// NewCanvasAdapter creates a CanvasPort from the container received via
// SetDependencyServiceContainer.
func NewCanvasAdapter(container mono.ServiceContainer) CanvasPort {
	if container == nil {
		panic("canvas adapter requires non-nil ServiceContainer")
	}
	return &canvasAdapter{container: container}
}

// Save saves the room's canvas. It returns ErrSaveFailed wrapping the
// reported reason when the store or the room lookup failed.
func (a *canvasAdapter) Save(ctx context.Context, roomID string) (*SaveResponse, error) {
	req := SaveRequest{RoomID: roomID}
	var resp SaveResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSave,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceSave, err)
	}

	if resp.Error != "" {
		return nil, replyError(ErrSaveFailed, resp.Error)
	}
	return &resp, nil
}

// Load loads the room's saved canvas. A room without a saved canvas yields
// ErrCanvasNotFound.
func (a *canvasAdapter) Load(ctx context.Context, roomID string) (*canvas.CanvasState, error) {
	req := LoadRequest{RoomID: roomID}
	var resp LoadResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLoad,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceLoad, err)
	}

	if resp.Error != "" {
		return nil, replyError(ErrLoadFailed, resp.Error)
	}
	if !resp.Found {
		return nil, ErrCanvasNotFound
	}
	return resp.State, nil
}

// replyError wraps a reply's error text in failure, keeping the room
// sentinel it names so callers can still match it with errors.Is.
func replyError(failure error, msg string) error {
	for _, sentinel := range []error{canvas.ErrRoomNotFound, canvas.ErrRoomIDInvalid} {
		if strings.Contains(msg, sentinel.Error()) {
			return fmt.Errorf("%w: %w", failure, sentinel)
		}
	}
	return fmt.Errorf("%w: %s", failure, msg)
}
