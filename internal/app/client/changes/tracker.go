// Package changes ведет очередь локальных изменений, ожидающих синхронизации.
//
// Каждое изменение сначала записывается в долговечное хранилище под ключом
// change_<id> и только потом попадает в очередь в памяти. Трекер лишь добавляет
// записи; обновлять и удалять их может только оркестратор синхронизации.
package changes

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"savesync/internal/errs"
)

const (
	KeyPrefix  = "change_"
	Category   = "sync_queue"
	DefaultTTL = 30 * 24 * time.Hour
)

// Store - долговечное хранилище, в котором живут записи очереди.
type Store interface {
	Store(ctx context.Context, key string, value []byte, category string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

type Config struct {
	TTL        time.Duration
	MaxRetries int
}

type Tracker struct {
	store Store
	cfg   Config
	log   *slog.Logger
	now   func() time.Time

	mu      gosync.Mutex
	pending map[string]Record
	notify  func()
}

func NewTracker(store Store, cfg Config, log *slog.Logger) *Tracker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &Tracker{
		store:   store,
		cfg:     cfg,
		log:     log.With(slog.String("component", "change_tracker")),
		now:     time.Now,
		pending: make(map[string]Record),
	}
}

// SetNotifier задает сигнал, который отправляется после каждого успешного Track.
// Сигнал вызывается асинхронно и не блокирует вызывающего.
func (t *Tracker) SetNotifier(fn func()) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}

// Track записывает изменение. Ошибка сохранения возвращается вызывающему:
// несохраненное изменение считается потерянным.
func (t *Tracker) Track(ctx context.Context, kind Kind, resourceKind string, payload []byte, priority Priority) (Record, error) {
	now := t.now()
	rec := Record{
		ID:           newID(resourceKind, now),
		Kind:         kind,
		ResourceKind: resourceKind,
		Payload:      payload,
		CreatedAt:    now,
		Priority:     priority,
	}

	if err := t.persist(ctx, rec); err != nil {
		return Record{}, errs.E("changes.track", errs.PersistenceFailure, err)
	}

	t.mu.Lock()
	t.pending[rec.ID] = rec
	notify := t.notify
	t.mu.Unlock()

	t.log.Debug("Изменение записано",
		"id", rec.ID,
		"kind", rec.Kind,
		"priority", rec.Priority.String(),
	)

	if notify != nil {
		go notify()
	}

	return rec, nil
}

// Load восстанавливает очередь из хранилища после перезапуска.
func (t *Tracker) Load(ctx context.Context) (int, error) {
	raw, err := t.store.Scan(ctx, KeyPrefix)
	if err != nil {
		return 0, errs.E("changes.load", errs.PersistenceFailure, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	loaded := 0
	for key, b := range raw {
		rec, err := decodeRecord(b)
		if err != nil {
			t.log.Warn("Пропущена нечитаемая запись очереди", "key", key, "error", err)
			continue
		}
		if rec.Synced {
			continue
		}
		t.pending[rec.ID] = rec
		loaded++
	}

	t.log.Info("Очередь изменений восстановлена", "count", loaded)

	return loaded, nil
}

// Unsynced возвращает копии ожидающих записей в порядке обработки.
// Записи, исчерпавшие попытки, сюда не входят.
func (t *Tracker) Unsynced() []Record {
	return t.collect(func(r Record) bool { return r.RetryCount < t.cfg.MaxRetries })
}

// Abandoned возвращает записи, исчерпавшие попытки и ждущие ручного повтора.
func (t *Tracker) Abandoned() []Record {
	return t.collect(func(r Record) bool { return r.RetryCount >= t.cfg.MaxRetries })
}

// Get возвращает копию записи по id.
func (t *Tracker) Get(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.pending[id]
	return rec, ok
}

func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, r := range t.pending {
		if !r.Synced && r.RetryCount < t.cfg.MaxRetries {
			n++
		}
	}
	return n
}

// Update сохраняет метаданные попыток записи. Только для оркестратора.
// Запись, которой уже нет в очереди, не восстанавливается: возвращается NotFound.
func (t *Tracker) Update(ctx context.Context, rec Record) error {
	const op = "changes.update"

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[rec.ID]; !ok {
		return errs.E(op, errs.NotFound, fmt.Errorf("change %s is not queued", rec.ID))
	}
	if err := t.persist(ctx, rec); err != nil {
		return errs.E(op, errs.PersistenceFailure, err)
	}
	t.pending[rec.ID] = rec

	return nil
}

// Remove удаляет запись после подтвержденного применения на сервере. Только для оркестратора.
func (t *Tracker) Remove(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Remove(ctx, KeyPrefix+id); err != nil {
		return errs.E("changes.remove", errs.PersistenceFailure, err)
	}
	delete(t.pending, id)

	return nil
}

// ResetAbandoned обнуляет счетчик попыток у отложенных записей.
func (t *Tracker) ResetAbandoned(ctx context.Context) (int, error) {
	reset := 0
	for _, rec := range t.Abandoned() {
		rec.RetryCount = 0
		rec.LastAttempt = nil
		if err := t.Update(ctx, rec); err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}

func (t *Tracker) persist(ctx context.Context, rec Record) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации изменения %s: %w", rec.ID, err)
	}
	return t.store.Store(ctx, rec.key(), b, Category, t.cfg.TTL)
}

func (t *Tracker) collect(keep func(Record) bool) []Record {
	t.mu.Lock()
	out := make([]Record, 0, len(t.pending))
	for _, r := range t.pending {
		if !r.Synced && keep(r) {
			out = append(out, r)
		}
	}
	t.mu.Unlock()

	SortForSync(out)
	return out
}

// SortForSync упорядочивает записи: приоритет по убыванию, затем старые раньше.
func SortForSync(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func newID(resourceKind string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%d_%s", resourceKind, now.UnixMilli(), suffix)
}
