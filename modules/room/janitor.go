package room

import (
	"context"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// janitor periodically evicts empty rooms that have been idle for too long.
type janitor struct {
	registry *Registry
	ttl      time.Duration
	interval time.Duration
	keep     []string
	logger   types.Logger

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func newJanitor(registry *Registry, ttl, interval time.Duration, logger types.Logger, keep ...string) *janitor {
	return &janitor{
		registry: registry,
		ttl:      ttl,
		interval: interval,
		keep:     keep,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (j *janitor) start() {
	go j.run()
}

func (j *janitor) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	defer close(j.doneChan)

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *janitor) sweep() []string {
	evicted := j.registry.EvictIdle(j.ttl, j.keep...)
	if len(evicted) > 0 {
		j.logger.Info("Evicted idle rooms", "count", len(evicted), "rooms", evicted)
	}
	return evicted
}

// stop signals the loop and waits for it to exit or for ctx to expire.
func (j *janitor) stop(ctx context.Context) error {
	j.stopOnce.Do(func() {
		close(j.stopChan)
	})

	select {
	case <-j.doneChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
