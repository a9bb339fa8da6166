package room

import "time"

// DefaultRoomID is the room that exists from startup and is never evicted.
const (
	DefaultRoomID   = "default"
	DefaultRoomName = "Main Canvas"
)

// Config holds room module settings.
type Config struct {
	// MaxChatHistory bounds the chat messages kept per room.
	MaxChatHistory int
	// IdleTTL is how long an empty room may sit untouched before eviction.
	// Zero disables eviction.
	IdleTTL time.Duration
	// SweepInterval is how often the janitor looks for idle rooms.
	SweepInterval time.Duration
}

// DefaultConfig returns the default room settings.
func DefaultConfig() Config {
	return Config{
		MaxChatHistory: DefaultMaxChatHistory,
		IdleTTL:        30 * time.Minute,
		SweepInterval:  time.Minute,
	}
}

// Option configures the room module.
type Option func(*Config)

// WithMaxChatHistory sets the per-room chat bound.
func WithMaxChatHistory(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxChatHistory = n
		}
	}
}

// WithIdleTTL sets the idle eviction age. Zero disables eviction.
func WithIdleTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl >= 0 {
			c.IdleTTL = ttl
		}
	}
}

// WithSweepInterval sets how often idle rooms are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.SweepInterval = d
		}
	}
}
