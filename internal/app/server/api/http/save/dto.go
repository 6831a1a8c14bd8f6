package save

import (
	"time"

	"savesync/internal/domain/save"
)

type slotInput struct {
	Slot int `path:"slot" minimum:"0" example:"1" doc:"Номер слота"`
}

type putInput struct {
	Slot int `path:"slot" minimum:"0" example:"1" doc:"Номер слота"`
	Body putRequest
}

type putRequest struct {
	Data      []byte    `json:"data" doc:"Содержимое сохранения (base64)"`
	Checksum  string    `json:"checksum" pattern:"^v[0-9]+:[0-9a-f]+$" doc:"Версионированная контрольная сумма data"`
	Version   int       `json:"version" minimum:"0"`
	LastSaved time.Time `json:"last_saved"`
}

type saveResponse struct {
	ID        int       `json:"id"`
	SlotID    int       `json:"slot_id"`
	Data      []byte    `json:"data,omitempty"`
	Checksum  string    `json:"checksum"`
	Version   int       `json:"version"`
	LastSaved time.Time `json:"last_saved"`
	UpdatedAt time.Time `json:"updated_at"`
}

type saveOutput struct {
	Body saveResponse
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Saves []saveResponse `json:"saves"`
}

type deleteOutput struct{}

func toResponse(rec save.Record) saveResponse {
	return saveResponse{
		ID:        rec.ID,
		SlotID:    rec.SlotID,
		Data:      rec.Data,
		Checksum:  rec.Checksum,
		Version:   rec.Version,
		LastSaved: rec.LastSaved,
		UpdatedAt: rec.UpdatedAt,
	}
}
