package config

import (
	"fmt"
	"strings"
)

// SlotBackend selects where the remembered identity is persisted.
type SlotBackend string

const (
	// SlotBackendMemory keeps the slot in process memory; it does not survive a restart.
	SlotBackendMemory SlotBackend = "memory"
	// SlotBackendRedis stores the slot under a single Redis key.
	SlotBackendRedis SlotBackend = "redis"
	// SlotBackendPostgres stores the slot as one row of the session_slot table.
	SlotBackendPostgres SlotBackend = "postgres"
)

// ValidSlotBackends returns all valid slot backend names.
func ValidSlotBackends() []SlotBackend {
	return []SlotBackend{SlotBackendMemory, SlotBackendRedis, SlotBackendPostgres}
}

// UnmarshalText implements encoding.TextUnmarshaler for SlotBackend.
func (b *SlotBackend) UnmarshalText(text []byte) error {
	v := SlotBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case SlotBackendMemory, SlotBackendRedis, SlotBackendPostgres:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid SlotBackend: %q (valid options: memory, redis, postgres)", string(v))
	}
}

// SlotConfig configures the session slot.
type SlotConfig struct {
	Backend SlotBackend `env:"SLOT_BACKEND" envDefault:"memory"`
	// Key names the slot within its backend.
	Key string `env:"SLOT_KEY" envDefault:"user"`
	// RedisPrefix namespaces the Redis key.
	RedisPrefix string `env:"SLOT_REDIS_PREFIX" envDefault:"assignpro:"`
}

// Sanitize restores defaults for blank values.
func (s *SlotConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = SlotBackendMemory
	}
	if s.Key = strings.TrimSpace(s.Key); s.Key == "" {
		s.Key = "user"
	}
	s.RedisPrefix = strings.TrimSpace(s.RedisPrefix)
}
