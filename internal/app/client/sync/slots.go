package sync

import (
	"context"
	"errors"
	"fmt"

	"savesync/internal/app/client/conflict"
	"savesync/internal/app/client/saves"
	"savesync/internal/app/client/transport"
)

var errNoLocal = errors.New("local saves are not configured")

// SyncSlots сверяет слоты целиком одной двусторонней операцией: только локальная
// копия выгружается, только удаленная скачивается, при двух копиях решает conflict.Resolver.
func (o *Orchestrator) SyncSlots(ctx context.Context, force bool) (*Session, error) {
	const op = "sync.slots"

	r, err := o.begin(ctx, op, force)
	if err != nil {
		return nil, err
	}

	states, planErr := o.planSlots(r.ctx)
	o.started(r, len(states))

	operation, ok := o.newOperation(r, OpBidirectional, len(states))
	if !ok {
		return o.finish(r), nil
	}

	if planErr != nil {
		o.log.Error("Не удалось получить список слотов", "error", planErr)
		o.mu.Lock()
		operation.Errors = append(operation.Errors, planErr.Error())
		o.mu.Unlock()
		o.closeOperation(r, operation, true)
		return o.finish(r), nil
	}

	for _, st := range states {
		if r.ctx.Err() != nil {
			return o.finish(r), nil
		}

		res, itemErr := o.reconcileSlot(context.WithoutCancel(r.ctx), st)
		if res != nil {
			o.mu.Lock()
			if o.gen == r.gen {
				r.session.Conflicts = append(r.session.Conflicts, *res)
			}
			o.mu.Unlock()
		}
		if itemErr != nil {
			o.log.Warn("Слот не синхронизирован", "slot", st.SlotID, "error", itemErr)
			itemErr = fmt.Errorf("slot %d: %w", st.SlotID, itemErr)
		}

		if !o.itemDone(r, operation, itemErr, nil) {
			return o.finish(r), nil
		}
	}

	o.closeOperation(r, operation, false)

	return o.finish(r), nil
}

// planSlots объединяет удаленный список с локальными слотами. Слоты без копий
// ни с одной стороны отбрасываются.
func (o *Orchestrator) planSlots(ctx context.Context) ([]transport.SlotState, error) {
	if o.local == nil {
		return nil, errNoLocal
	}

	remote, err := o.remote.ListSlots(ctx)
	if err != nil {
		return nil, err
	}

	local, err := o.local.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local slots: %w", err)
	}

	bySlot := make(map[int]saves.SlotInfo, len(local))
	for _, info := range local {
		bySlot[info.SlotID] = info
	}

	out := make([]transport.SlotState, 0, len(remote))
	for _, st := range remote {
		if info, ok := bySlot[st.SlotID]; ok {
			st.LocalExists = true
			st.LocalLastSaved = info.LastSaved
		}
		if st.LocalExists || st.RemoteExists {
			out = append(out, st)
		}
	}

	return out, nil
}

func (o *Orchestrator) reconcileSlot(ctx context.Context, st transport.SlotState) (*conflict.Resolution, error) {
	switch {
	case st.LocalExists && !st.RemoteExists:
		return nil, o.pushSlot(ctx, st.SlotID)
	case !st.LocalExists && st.RemoteExists:
		return nil, o.pullSlot(ctx, st.SlotID)
	}

	local, err := o.local.Load(ctx, st.SlotID)
	if err != nil {
		return nil, fmt.Errorf("load local slot: %w", err)
	}

	o.mu.Lock()
	prompt := o.prompt
	o.mu.Unlock()

	decision, res, err := o.resolver.Resolve(ctx, st.SlotID,
		conflict.Meta{LastSaved: local.LastSaved, Version: local.Version},
		conflict.Meta{LastSaved: st.RemoteLastSaved, Checksum: st.RemoteChecksum},
		o.cfg.Policy, prompt,
	)
	if err != nil {
		return nil, err
	}

	if res != nil {
		o.log.Info("Конфликт слота разрешен",
			"slot", st.SlotID,
			"resolution", res.Resolution,
			"resolved_by", res.ResolvedBy,
		)
	}

	switch decision {
	case conflict.DecisionServer:
		return res, o.pullSlot(ctx, st.SlotID)
	case conflict.DecisionLocal:
		return res, o.pushSlot(ctx, st.SlotID)
	default:
		return res, nil
	}
}

func (o *Orchestrator) pushSlot(ctx context.Context, slot int) error {
	snap, err := o.local.Load(ctx, slot)
	if err != nil {
		if errors.Is(err, saves.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load local slot: %w", err)
	}

	if _, err := o.remote.Upload(ctx, slot, *snap); err != nil {
		return err
	}

	o.log.Debug("Слот выгружен", "slot", slot)

	return nil
}

func (o *Orchestrator) pullSlot(ctx context.Context, slot int) error {
	snap, err := o.remote.Download(ctx, slot)
	if err != nil {
		return err
	}

	if err := o.local.Save(ctx, slot, *snap); err != nil {
		return fmt.Errorf("save local slot: %w", err)
	}

	o.log.Debug("Слот загружен с сервера", "slot", slot)

	return nil
}
