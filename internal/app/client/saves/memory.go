package saves

import (
	"context"
	"sort"
	gosync "sync"
	"time"

	"savesync/internal/utils/checksum"
)

// MemoryManager - запасной менеджер в памяти, когда SQLite недоступен.
type MemoryManager struct {
	mu    gosync.RWMutex
	slots map[int]memorySlot
}

type memorySlot struct {
	snap      Snapshot
	updatedAt time.Time
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{slots: make(map[int]memorySlot)}
}

func (m *MemoryManager) Save(_ context.Context, slot int, snap Snapshot) error {
	data := make([]byte, len(snap.Data))
	copy(data, snap.Data)
	snap.Data = data

	m.mu.Lock()
	m.slots[slot] = memorySlot{snap: snap, updatedAt: time.Now()}
	m.mu.Unlock()

	return nil
}

func (m *MemoryManager) Load(_ context.Context, slot int) (*Snapshot, error) {
	m.mu.RLock()
	s, ok := m.slots[slot]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	snap := s.snap
	snap.Data = append([]byte(nil), s.snap.Data...)

	return &snap, nil
}

func (m *MemoryManager) Delete(_ context.Context, slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[slot]; !ok {
		return ErrNotFound
	}
	delete(m.slots, slot)

	return nil
}

func (m *MemoryManager) Exists(_ context.Context, slot int) (bool, error) {
	m.mu.RLock()
	_, ok := m.slots[slot]
	m.mu.RUnlock()

	return ok, nil
}

func (m *MemoryManager) List(_ context.Context) ([]SlotInfo, error) {
	m.mu.RLock()
	infos := make([]SlotInfo, 0, len(m.slots))
	for id, s := range m.slots {
		infos = append(infos, SlotInfo{
			SlotID:    id,
			Version:   s.snap.Version,
			LastSaved: s.snap.LastSaved,
			Size:      len(s.snap.Data),
			Checksum:  checksum.Sum(s.snap.Data),
			UpdatedAt: s.updatedAt,
		})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].SlotID < infos[j].SlotID })

	return infos, nil
}

func (m *MemoryManager) Close() error { return nil }
