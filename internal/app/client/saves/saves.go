// Package saves хранит слоты сохранений на стороне клиента.
package saves

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("save slot not found")

// Snapshot - непрозрачный блоб состояния игры с версией и временем сохранения.
type Snapshot struct {
	Data      []byte    `json:"data"`
	Version   int       `json:"version"`
	LastSaved time.Time `json:"last_saved"`
}

// SlotInfo - метаданные слота без содержимого.
type SlotInfo struct {
	SlotID    int       `json:"slot_id"`
	Version   int       `json:"version"`
	LastSaved time.Time `json:"last_saved"`
	Size      int       `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager - локальный менеджер слотов. Отрицательные номера слотов используются под резервные копии.
type Manager interface {
	Save(ctx context.Context, slot int, snap Snapshot) error
	Load(ctx context.Context, slot int) (*Snapshot, error)
	Delete(ctx context.Context, slot int) error
	Exists(ctx context.Context, slot int) (bool, error)
	List(ctx context.Context) ([]SlotInfo, error)
	Close() error
}
