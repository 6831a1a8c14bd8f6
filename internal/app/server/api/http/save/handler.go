package save

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"savesync/internal/app/server/api/http/middleware/auth"
	"savesync/internal/domain/save"
)

type Handler struct {
	service    save.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service save.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.putOp(), h.put)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	recs, err := h.service.List(ctx, userID)
	if err != nil {
		return nil, h.toHumaError(err)
	}

	out := &listOutput{}
	out.Body.Saves = make([]saveResponse, 0, len(recs))
	for _, rec := range recs {
		out.Body.Saves = append(out.Body.Saves, toResponse(rec))
	}
	return out, nil
}

func (h *Handler) get(ctx context.Context, input *slotInput) (*saveOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	rec, err := h.service.Get(ctx, userID, input.Slot)
	if err != nil {
		return nil, h.toHumaError(err)
	}
	return &saveOutput{Body: toResponse(rec)}, nil
}

func (h *Handler) put(ctx context.Context, input *putInput) (*saveOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	rec, err := h.service.Upsert(ctx, save.Record{
		UserID:    userID,
		SlotID:    input.Slot,
		Data:      input.Body.Data,
		Checksum:  input.Body.Checksum,
		Version:   input.Body.Version,
		LastSaved: input.Body.LastSaved,
	})
	if err != nil {
		return nil, h.toHumaError(err)
	}

	// содержимое клиент уже знает
	rec.Data = nil
	return &saveOutput{Body: toResponse(rec)}, nil
}

func (h *Handler) delete(ctx context.Context, input *slotInput) (*deleteOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.Delete(ctx, userID, input.Slot); err != nil {
		return nil, h.toHumaError(err)
	}
	return &deleteOutput{}, nil
}

func (h *Handler) toHumaError(err error) error {
	switch {
	case errors.Is(err, save.ErrNotFound):
		return huma.Error404NotFound("save not found")
	case errors.Is(err, save.ErrChecksumMismatch):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, save.ErrInvalidSlot):
		return huma.Error400BadRequest(err.Error())
	}

	h.log.Error("save operation failed", slog.String("error", err.Error()))
	return huma.Error500InternalServerError("internal error")
}
