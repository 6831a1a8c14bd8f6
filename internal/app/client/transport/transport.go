// Package transport - аутентифицированный обмен слотами сохранений с удаленным хранилищем.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"savesync/internal/app/client/saves"
	"savesync/internal/errs"
	"savesync/internal/utils/checksum"
)

const DefaultMaxSlots = 5

// Identity - текущий пользователь удаленного хранилища.
type Identity struct {
	UserID string
	Token  string
}

// Session сообщает, выполнен ли вход.
type Session interface {
	Current() (Identity, bool)
}

// Reachability сообщает, есть ли вообще сетевой путь.
type Reachability interface {
	Online() bool
}

// RemoteRecord - запись слота на сервере. Data пуст в результатах List.
type RemoteRecord struct {
	ID        string
	SlotID    int
	Data      []byte
	Checksum  string
	Version   int
	LastSaved time.Time
	UpdatedAt time.Time
}

// Backend - CRUD записей по (пользователь, слот).
// Отсутствие записи сообщается ошибкой вида errs.NotFound.
type Backend interface {
	Put(ctx context.Context, id Identity, rec RemoteRecord) (RemoteRecord, error)
	Get(ctx context.Context, id Identity, slot int) (RemoteRecord, error)
	Delete(ctx context.Context, id Identity, slot int) error
	List(ctx context.Context, id Identity) ([]RemoteRecord, error)
	Ping(ctx context.Context) error
}

// SlotState - сводка по слоту: локальная и удаленная сторона.
type SlotState struct {
	SlotID          int       `json:"slot_id"`
	LocalExists     bool      `json:"local_exists"`
	LocalLastSaved  time.Time `json:"local_last_saved"`
	RemoteExists    bool      `json:"remote_exists"`
	RemoteLastSaved time.Time `json:"remote_last_saved"`
	RemoteChecksum  string    `json:"remote_checksum,omitempty"`
}

type Adapter struct {
	backend  Backend
	session  Session
	link     Reachability
	maxSlots int
	autoSlot int
	log      *slog.Logger
}

type AdapterOption func(*Adapter)

// WithAutoSaveSlot разрешает выгрузку слота автосохранения, если он вне 1..maxSlots.
func WithAutoSaveSlot(slot int) AdapterOption {
	return func(a *Adapter) { a.autoSlot = slot }
}

func NewAdapter(backend Backend, session Session, link Reachability, maxSlots int, log *slog.Logger, opts ...AdapterOption) *Adapter {
	if maxSlots <= 0 {
		maxSlots = DefaultMaxSlots
	}

	a := &Adapter{
		backend:  backend,
		session:  session,
		link:     link,
		maxSlots: maxSlots,
		log:      log.With(slog.String("component", "transport")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) MaxSlots() int { return a.maxSlots }

// Authenticated сообщает, есть ли активная сессия.
func (a *Adapter) Authenticated() bool {
	if a.session == nil {
		return false
	}
	_, ok := a.session.Current()
	return ok
}

// Upload - идемпотентная запись слота вместе с контрольной суммой.
func (a *Adapter) Upload(ctx context.Context, slot int, snap saves.Snapshot) (string, error) {
	const op = "transport.upload"

	id, err := a.guard(op, slot)
	if err != nil {
		return "", err
	}

	rec, err := a.backend.Put(ctx, id, RemoteRecord{
		SlotID:    slot,
		Data:      snap.Data,
		Checksum:  checksum.Sum(snap.Data),
		Version:   snap.Version,
		LastSaved: snap.LastSaved,
	})
	if err != nil {
		return "", wrap(op, err)
	}

	a.log.Debug("Слот выгружен", "slot", slot, "remote_id", rec.ID, "size", len(snap.Data))

	return rec.ID, nil
}

// Download возвращает содержимое слота. Данные с неверной суммой не возвращаются.
func (a *Adapter) Download(ctx context.Context, slot int) (*saves.Snapshot, error) {
	const op = "transport.download"

	id, err := a.guard(op, slot)
	if err != nil {
		return nil, err
	}

	rec, err := a.backend.Get(ctx, id, slot)
	if err != nil {
		return nil, wrap(op, err)
	}

	if err := checksum.Verify(rec.Data, rec.Checksum); err != nil {
		a.log.Warn("Удаленная копия повреждена", "slot", slot, "error", err)
		return nil, errs.E(op, errs.Corrupt, fmt.Errorf("slot %d: %w", slot, err))
	}

	return &saves.Snapshot{
		Data:      rec.Data,
		Version:   rec.Version,
		LastSaved: rec.LastSaved,
	}, nil
}

func (a *Adapter) Delete(ctx context.Context, slot int) error {
	const op = "transport.delete"

	id, err := a.guard(op, slot)
	if err != nil {
		return err
	}

	if err := a.backend.Delete(ctx, id, slot); err != nil {
		return wrap(op, err)
	}

	return nil
}

// ListSlots возвращает по записи на каждый слот 1..maxSlots.
func (a *Adapter) ListSlots(ctx context.Context) ([]SlotState, error) {
	const op = "transport.list"

	id, err := a.guard(op, 1)
	if err != nil {
		return nil, err
	}

	recs, err := a.backend.List(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}

	bySlot := make(map[int]RemoteRecord, len(recs))
	for _, r := range recs {
		bySlot[r.SlotID] = r
	}

	states := make([]SlotState, 0, a.maxSlots)
	for slot := 1; slot <= a.maxSlots; slot++ {
		st := SlotState{SlotID: slot}
		if r, ok := bySlot[slot]; ok {
			st.RemoteExists = true
			st.RemoteLastSaved = r.LastSaved
			st.RemoteChecksum = r.Checksum
		}
		states = append(states, st)
	}

	return states, nil
}

// Ping - проверка доступности, вход не требуется.
func (a *Adapter) Ping(ctx context.Context) error {
	if a.link != nil && !a.link.Online() {
		return errs.E("transport.ping", errs.Offline, nil)
	}
	return a.backend.Ping(ctx)
}

// guard проверяет по порядку: сессию, сеть, номер слота.
func (a *Adapter) guard(op string, slot int) (Identity, error) {
	if a.session == nil {
		return Identity{}, errs.E(op, errs.NotAuthenticated, nil)
	}
	id, ok := a.session.Current()
	if !ok {
		return Identity{}, errs.E(op, errs.NotAuthenticated, nil)
	}
	if a.link != nil && !a.link.Online() {
		return Identity{}, errs.E(op, errs.Offline, nil)
	}
	if !a.validSlot(slot) {
		return Identity{}, errs.E(op, errs.InvalidSlot, fmt.Errorf("slot %d outside 1..%d", slot, a.maxSlots))
	}
	return id, nil
}

// validSlot пропускает 1..maxSlots и слот автосохранения. Резервные (отрицательные)
// слоты живут только локально.
func (a *Adapter) validSlot(slot int) bool {
	if slot == a.autoSlot && slot >= 0 {
		return true
	}
	return slot >= 1 && slot <= a.maxSlots
}

func wrap(op string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return errs.E(op, e.Kind, err)
	}
	return errs.E(op, errs.Unknown, err)
}
