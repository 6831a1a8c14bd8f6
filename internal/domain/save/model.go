package save

import "time"

// Record - серверная копия одного слота сохранения пользователя.
type Record struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	SlotID    int       `json:"slot_id"`
	Data      []byte    `json:"data,omitempty"`
	Checksum  string    `json:"checksum"`
	Version   int       `json:"version"`
	LastSaved time.Time `json:"last_saved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
