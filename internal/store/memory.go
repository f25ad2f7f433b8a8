package store

import (
	"context"
	"sync"

	"github.com/harvestfi/rewardpool/internal/derive"
)

type memRecord struct {
	size int
	data []byte
}

// Memory is an in-memory RecordStore. It backs tests and single-process
// deployments that do not need durability.
type Memory struct {
	mu      sync.Mutex
	records map[derive.Address]*memRecord

	// MaxRecords, when > 0, caps how many records can be created. Used by
	// tests to exercise the insufficient-backing path.
	MaxRecords int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[derive.Address]*memRecord)}
}

var _ RecordStore = (*Memory)(nil)

func (m *Memory) Create(_ context.Context, addr derive.Address, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[addr]; ok {
		return ErrAlreadyExists
	}
	if m.MaxRecords > 0 && len(m.records) >= m.MaxRecords {
		return ErrInsufficientBacking
	}
	m.records[addr] = &memRecord{size: size, data: make([]byte, size)}
	return nil
}

func (m *Memory) Read(_ context.Context, addr derive.Address) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[addr]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(rec.data))
	copy(out, rec.data)
	return out, nil
}

func (m *Memory) Write(_ context.Context, addr derive.Address, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[addr]
	if !ok {
		return ErrNotFound
	}
	if len(data) > rec.size {
		return ErrTooLarge
	}
	buf := make([]byte, rec.size)
	copy(buf, data)
	rec.data = buf
	return nil
}
