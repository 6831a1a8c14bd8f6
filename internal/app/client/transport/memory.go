package transport

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"savesync/internal/errs"
)

// MemoryBackend держит записи в памяти процесса. Используется для офлайн-режима и тестов.
type MemoryBackend struct {
	mu      gosync.RWMutex
	records map[string]map[int]RemoteRecord
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]map[int]RemoteRecord),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Put(_ context.Context, id Identity, rec RemoteRecord) (RemoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.records[id.UserID]
	if !ok {
		user = make(map[int]RemoteRecord)
		m.records[id.UserID] = user
	}

	rec.ID = fmt.Sprintf("mem-%s-%d", id.UserID, rec.SlotID)
	rec.Data = append([]byte(nil), rec.Data...)
	rec.UpdatedAt = m.now()
	user[rec.SlotID] = rec

	return rec, nil
}

func (m *MemoryBackend) Get(_ context.Context, id Identity, slot int) (RemoteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id.UserID][slot]
	if !ok {
		return RemoteRecord{}, errs.E("memory.get", errs.NotFound, nil)
	}
	rec.Data = append([]byte(nil), rec.Data...)

	return rec, nil
}

func (m *MemoryBackend) Delete(_ context.Context, id Identity, slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id.UserID][slot]; !ok {
		return errs.E("memory.delete", errs.NotFound, nil)
	}
	delete(m.records[id.UserID], slot)

	return nil
}

func (m *MemoryBackend) List(_ context.Context, id Identity) ([]RemoteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RemoteRecord, 0, len(m.records[id.UserID]))
	for _, rec := range m.records[id.UserID] {
		rec.Data = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })

	return out, nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }
