package api

import "golang.org/x/time/rate"

// connLimits holds the token buckets of one websocket connection. Cursor
// moves have their own budget so a busy pointer cannot starve drawing.
type connLimits struct {
	cursor   *rate.Limiter
	messages *rate.Limiter
}

func newConnLimits(cfg Config) *connLimits {
	return &connLimits{
		cursor:   newLimiter(cfg.CursorRate, cfg.CursorBurst),
		messages: newLimiter(cfg.MessageRate, cfg.MessageBurst),
	}
}

// newLimiter returns an unlimited limiter when r is not positive.
func newLimiter(r rate.Limit, burst int) *rate.Limiter {
	if r <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(r, burst)
}

func (l *connLimits) allow(in Intent) bool {
	if _, ok := in.(CursorMove); ok {
		return l.cursor.Allow()
	}
	return l.messages.Allow()
}
