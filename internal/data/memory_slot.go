package data

import (
	"context"
	"slices"
	"sync"

	"github.com/assignpro/assignpro-web/internal/ports"
)

var _ ports.SlotStore = (*MemorySlot)(nil)

// MemorySlot is a process-local slot. The record is lost on restart.
type MemorySlot struct {
	mu    sync.RWMutex
	value []byte
	set   bool
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot() *MemorySlot { return &MemorySlot{} }

func (m *MemorySlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, ports.ErrSlotEmpty
	}
	return slices.Clone(m.value), nil
}

func (m *MemorySlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = slices.Clone(data)
	m.set = true
	return nil
}

func (m *MemorySlot) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = nil
	m.set = false
	return nil
}
