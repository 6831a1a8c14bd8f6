package changes

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"savesync/internal/app/client/saves"
)

type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Priority упорядочена: больше - важнее.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "medium", "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return PriorityLow, fmt.Errorf("unknown priority %q", s)
	}
}

const ResourceGameSave = "game_save"

// Record - одно отслеживаемое локальное изменение.
type Record struct {
	ID           string     `msgpack:"id"`
	Kind         Kind       `msgpack:"kind"`
	ResourceKind string     `msgpack:"resource_kind"`
	Payload      []byte     `msgpack:"payload"`
	CreatedAt    time.Time  `msgpack:"created_at"`
	Synced       bool       `msgpack:"synced"`
	RetryCount   int        `msgpack:"retry_count"`
	LastAttempt  *time.Time `msgpack:"last_attempt,omitempty"`
	Priority     Priority   `msgpack:"priority"`
}

func (r Record) key() string {
	return KeyPrefix + r.ID
}

func encodeRecord(r Record) ([]byte, error) {
	return msgpack.Marshal(&r)
}

func decodeRecord(b []byte) (Record, error) {
	var r Record
	err := msgpack.Unmarshal(b, &r)
	return r, err
}

// SavePayload - полезная нагрузка изменения типа game_save.
type SavePayload struct {
	SlotID    int       `msgpack:"slot"`
	Data      []byte    `msgpack:"data,omitempty"`
	Version   int       `msgpack:"version"`
	LastSaved time.Time `msgpack:"last_saved"`
}

func NewSavePayload(slot int, snap saves.Snapshot) SavePayload {
	return SavePayload{
		SlotID:    slot,
		Data:      snap.Data,
		Version:   snap.Version,
		LastSaved: snap.LastSaved,
	}
}

func (p SavePayload) Snapshot() saves.Snapshot {
	return saves.Snapshot{
		Data:      p.Data,
		Version:   p.Version,
		LastSaved: p.LastSaved,
	}
}

func (p SavePayload) Encode() ([]byte, error) {
	return msgpack.Marshal(&p)
}

func DecodeSavePayload(b []byte) (SavePayload, error) {
	var p SavePayload
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode save payload: %w", err)
	}
	return p, nil
}
