// Package sync ведет сессии синхронизации очереди изменений и слотов сохранений с удаленным хранилищем.
//
// В каждый момент выполняется не более одной сессии. Флаг syncing под мьютексом
// оркестратора играет роль замка сессии: повторный StartSync без force сразу
// получает AlreadySyncing, а не ждет.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"savesync/internal/app/client/changes"
	"savesync/internal/app/client/conflict"
	"savesync/internal/app/client/network"
	"savesync/internal/app/client/saves"
	"savesync/internal/app/client/transport"
	"savesync/internal/errs"
)

const (
	LastSyncKey      = "last_sync_time"
	LastSyncCategory = "sync_meta"
)

// Queue - очередь изменений (changes.Tracker).
type Queue interface {
	Track(ctx context.Context, kind changes.Kind, resourceKind string, payload []byte, priority changes.Priority) (changes.Record, error)
	SetNotifier(fn func())
	Unsynced() []changes.Record
	Abandoned() []changes.Record
	Get(id string) (changes.Record, bool)
	Pending() int
	Update(ctx context.Context, rec changes.Record) error
	Remove(ctx context.Context, id string) error
	ResetAbandoned(ctx context.Context) (int, error)
}

// Remote - удаленная сторона (transport.Adapter).
type Remote interface {
	Upload(ctx context.Context, slot int, snap saves.Snapshot) (string, error)
	Download(ctx context.Context, slot int) (*saves.Snapshot, error)
	Delete(ctx context.Context, slot int) error
	ListSlots(ctx context.Context) ([]transport.SlotState, error)
	Ping(ctx context.Context) error
}

// LocalSaves - локальные слоты, в которые пишутся скачанные копии.
type LocalSaves interface {
	Save(ctx context.Context, slot int, snap saves.Snapshot) error
	Load(ctx context.Context, slot int) (*saves.Snapshot, error)
	List(ctx context.Context) ([]saves.SlotInfo, error)
}

// StateStore хранит время последней синхронизации.
type StateStore interface {
	Store(ctx context.Context, key string, value []byte, category string, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type QualitySource interface {
	Quality() network.Quality
}

// Scheduler откладывает вызов fn на d и возвращает функцию отмены.
type Scheduler func(d time.Duration, fn func()) (stop func())

func timerScheduler(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

type Config struct {
	BatchSize      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	Interval       time.Duration
	Policy         conflict.Policy
}

func DefaultConfig() Config {
	return Config{
		BatchSize:      10,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		Interval:       5 * time.Minute,
		Policy:         conflict.PolicyNewest,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = def.RetryBaseDelay
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Policy == "" {
		c.Policy = def.Policy
	}
	return c
}

// Backoff возвращает задержку перед n-й повторной попыткой: base * 2^(n-1).
func Backoff(base time.Duration, n int) time.Duration {
	if n <= 1 {
		return base
	}
	return base << (n - 1)
}

// Deps - зависимости оркестратора.
type Deps struct {
	Queue        Queue
	Remote       Remote
	Local        LocalSaves
	State        StateStore
	Quality      QualitySource
	Connectivity *network.Connectivity
}

type Orchestrator struct {
	queue    Queue
	remote   Remote
	local    LocalSaves
	state    StateStore
	quality  QualitySource
	conn     *network.Connectivity
	resolver *conflict.Resolver
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
	schedule Scheduler
	autoSync bool

	mu        gosync.Mutex
	baseCtx   context.Context
	syncing   bool
	gen       uint64
	current   *Session
	cancel    context.CancelFunc
	lastSync  time.Time
	nextSync  time.Time
	prompt    conflict.Prompter
	observers map[int]Observer
	nextObsID int
	retries   map[string]func()
}

type Option func(*Orchestrator)

// WithScheduler подменяет таймеры повторных попыток.
func WithScheduler(s Scheduler) Option {
	return func(o *Orchestrator) { o.schedule = s }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithoutAutoSync отключает запуск сессии по новому изменению и по восстановлению
// связи. Остаются явный StartSync, повторы и периодический запуск.
func WithoutAutoSync() Option {
	return func(o *Orchestrator) { o.autoSync = false }
}

func New(deps Deps, cfg Config, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		queue:     deps.Queue,
		remote:    deps.Remote,
		local:     deps.Local,
		state:     deps.State,
		quality:   deps.Quality,
		conn:      deps.Connectivity,
		resolver:  conflict.NewResolver(),
		cfg:       cfg.withDefaults(),
		log:       log.With(slog.String("component", "sync_orchestrator")),
		now:       time.Now,
		schedule:  timerScheduler,
		autoSync:  true,
		baseCtx:   context.Background(),
		observers: make(map[int]Observer),
		retries:   make(map[string]func()),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.conn == nil {
		o.conn = network.NewConnectivity(true)
	}

	o.loadLastSync()
	if o.autoSync {
		o.queue.SetNotifier(o.requestSync)
	}
	o.conn.Subscribe(o.onConnectivity)

	return o
}

// Subscribe регистрирует наблюдателя. Возвращает функцию отписки.
func (o *Orchestrator) Subscribe(obs Observer) func() {
	o.mu.Lock()
	id := o.nextObsID
	o.nextObsID++
	o.observers[id] = obs
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// SetPrompter задает обработчик конфликтов для политики prompt.
func (o *Orchestrator) SetPrompter(p conflict.Prompter) {
	o.mu.Lock()
	o.prompt = p
	o.mu.Unlock()
}

// TrackChange ставит изменение в очередь.
func (o *Orchestrator) TrackChange(ctx context.Context, kind changes.Kind, resourceKind string, payload []byte, priority changes.Priority) (changes.Record, error) {
	return o.queue.Track(ctx, kind, resourceKind, payload, priority)
}

// TrackSave ставит в очередь изменение слота сохранения.
func (o *Orchestrator) TrackSave(ctx context.Context, kind changes.Kind, slot int, snap saves.Snapshot, priority changes.Priority) (changes.Record, error) {
	payload, err := changes.NewSavePayload(slot, snap).Encode()
	if err != nil {
		return changes.Record{}, errs.E("sync.track_save", errs.PersistenceFailure, err)
	}
	return o.queue.Track(ctx, kind, changes.ResourceGameSave, payload, priority)
}

// StartSync проводит сессию по всем неотправленным изменениям и возвращает ее снимок.
// С force=true текущая сессия сначала отменяется.
func (o *Orchestrator) StartSync(ctx context.Context, force bool) (*Session, error) {
	const op = "sync.start"

	run, err := o.begin(ctx, op, force)
	if err != nil {
		return nil, err
	}

	records := o.queue.Unsynced()
	o.started(run, len(records))

	for i := 0; i < len(records); i += o.cfg.BatchSize {
		if run.ctx.Err() != nil || !o.conn.Connected() {
			break
		}
		end := min(i+o.cfg.BatchSize, len(records))
		o.runBatch(run, records[i:end])
	}

	return o.finish(run), nil
}

// CancelSync прерывает текущую сессию. Без активной сессии ничего не делает.
func (o *Orchestrator) CancelSync() {
	o.mu.Lock()
	s := o.cancelLocked()
	o.mu.Unlock()

	if s != nil {
		o.log.Info("Синхронизация отменена", "session", s.ID)
	}
}

// Status возвращает снимок состояния.
func (o *Orchestrator) Status() Status {
	pending := o.queue.Pending()
	abandoned := len(o.queue.Abandoned())
	q := network.QualityPoor
	if o.quality != nil {
		q = o.quality.Quality()
	}
	st := o.conn.State()

	o.mu.Lock()
	defer o.mu.Unlock()

	return Status{
		Online:            st.Online,
		Connected:         st.Connected,
		Syncing:           o.syncing,
		PendingChanges:    pending,
		AbandonedChanges:  abandoned,
		LastSyncTime:      o.lastSync,
		NextSyncTime:      o.nextSync,
		CurrentSession:    o.current.clone(),
		NetworkQuality:    q,
		EstimatedDuration: time.Duration(pending) * network.EstimatePerItem(q),
	}
}

// RetryAbandoned возвращает в очередь записи, исчерпавшие попытки, и запускает синхронизацию.
func (o *Orchestrator) RetryAbandoned(ctx context.Context) (int, *Session, error) {
	n, err := o.queue.ResetAbandoned(ctx)
	if err != nil {
		return n, nil, err
	}
	if n == 0 {
		return 0, nil, nil
	}

	o.log.Info("Отложенные изменения возвращены в очередь", "count", n)

	s, err := o.StartSync(ctx, false)
	return n, s, err
}

// SetOnline принимает сигнал сети от среды выполнения.
func (o *Orchestrator) SetOnline(online bool) {
	o.conn.SetOnline(online)
	if online {
		go o.CheckConnectivity(o.context())
	}
}

// CheckConnectivity проверяет доступность сервера и возвращает, подтверждена ли связь.
func (o *Orchestrator) CheckConnectivity(ctx context.Context) bool {
	if !o.conn.Online() {
		return false
	}

	err := o.remote.Ping(ctx)
	if err != nil {
		o.log.Debug("Сервер недоступен", "error", err)
	}
	o.conn.Confirm(err == nil)

	return o.conn.Connected()
}

// Start запускает периодическую синхронизацию и блокируется до отмены ctx.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.baseCtx = ctx
	o.nextSync = o.now().Add(o.cfg.Interval)
	o.mu.Unlock()

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.stopRetries()
			o.log.Debug("Периодическая синхронизация остановлена")
			return
		case <-ticker.C:
			o.mu.Lock()
			o.nextSync = o.now().Add(o.cfg.Interval)
			o.mu.Unlock()
			o.periodic(ctx)
		}
	}
}

func (o *Orchestrator) periodic(ctx context.Context) {
	if !o.conn.Connected() && !o.CheckConnectivity(ctx) {
		return
	}
	if o.Syncing() || o.queue.Pending() == 0 {
		return
	}

	if _, err := o.StartSync(ctx, false); err != nil && !errs.Is(err, errs.AlreadySyncing) {
		o.log.Warn("Периодическая синхронизация не удалась", "error", err)
		o.emitError("periodic sync failed", err)
	}
}

func (o *Orchestrator) Syncing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.syncing
}

// LastSyncTime возвращает время последней завершенной сессии.
func (o *Orchestrator) LastSyncTime() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSync
}

// requestSync - сигнал трекера о новом изменении. Сессия запускается, только
// если связь подтверждена и синхронизация не идет.
func (o *Orchestrator) requestSync() {
	if !o.conn.Connected() || o.Syncing() || o.queue.Pending() == 0 {
		return
	}

	if _, err := o.StartSync(o.context(), false); err != nil && !errs.Is(err, errs.AlreadySyncing) {
		o.log.Warn("Фоновая синхронизация не удалась", "error", err)
		o.emitError("background sync failed", err)
	}
}

func (o *Orchestrator) onConnectivity(s network.State) {
	o.log.Info("Состояние связи изменилось", "online", s.Online, "connected", s.Connected)

	for _, obs := range o.observerList() {
		obs.OnConnectivityChange(s.Online, s.Connected)
	}

	if s.Connected && o.autoSync {
		go o.requestSync()
	}
}

// run - состояние одной сессии.
type run struct {
	gen     uint64
	ctx     context.Context
	session *Session
}

// begin занимает замок сессии и проверяет связь.
func (o *Orchestrator) begin(ctx context.Context, op string, force bool) (*run, error) {
	o.mu.Lock()
	if o.syncing {
		if !force {
			o.mu.Unlock()
			return nil, errs.E(op, errs.AlreadySyncing, nil)
		}
		if s := o.cancelLocked(); s != nil {
			o.log.Info("Текущая синхронизация прервана принудительным запуском", "session", s.ID)
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	o.gen++
	o.syncing = true
	o.cancel = cancel
	r := &run{gen: o.gen, ctx: sctx}
	o.mu.Unlock()

	if !o.conn.Connected() && !o.CheckConnectivity(sctx) {
		o.release(r)
		return nil, errs.E(op, errs.NotConnected, nil)
	}

	q := network.QualityPoor
	if o.quality != nil {
		q = o.quality.Quality()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gen != r.gen {
		cancel()
		return nil, errs.E(op, errs.AlreadySyncing, nil)
	}

	r.session = &Session{
		ID:             uuid.NewString(),
		StartTime:      o.now(),
		Operations:     []*Operation{},
		NetworkQuality: q,
	}
	o.current = r.session

	return r, nil
}

func (o *Orchestrator) started(r *run, total int) {
	o.mu.Lock()
	r.session.TotalChanges = total
	snap := r.session.clone()
	o.mu.Unlock()

	o.log.Info("Начало синхронизации",
		"session", snap.ID,
		"changes", snap.TotalChanges,
		"quality", snap.NetworkQuality,
	)

	for _, obs := range o.observerList() {
		obs.OnSyncStart(snap)
	}
}

// release отпускает замок без создания сессии.
func (o *Orchestrator) release(r *run) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gen != r.gen {
		return
	}
	o.syncing = false
	o.cancel()
	o.cancel = nil
}

// finish закрывает сессию, если ее не отменили раньше, и сохраняет время синхронизации.
func (o *Orchestrator) finish(r *run) *Session {
	o.mu.Lock()
	if o.gen != r.gen {
		snap := r.session.clone()
		o.mu.Unlock()
		return snap
	}

	for _, op := range r.session.Operations {
		if !op.Status.Terminal() {
			op.transition(StatusCancelled)
		}
	}
	now := o.now()
	r.session.EndTime = &now
	o.lastSync = now
	o.current = nil
	o.syncing = false
	o.cancel()
	o.cancel = nil
	snap := r.session.clone()
	o.mu.Unlock()

	o.persistLastSync(now)

	o.log.Info("Синхронизация завершена",
		"session", snap.ID,
		"total", snap.TotalChanges,
		"successful", snap.SuccessfulChanges,
		"failed", snap.FailedChanges,
		"conflicts", len(snap.Conflicts),
		"duration", now.Sub(snap.StartTime),
	)

	for _, obs := range o.observerList() {
		obs.OnSyncComplete(snap)
	}

	return snap
}

// cancelLocked закрывает текущую сессию. Вызывается под o.mu.
func (o *Orchestrator) cancelLocked() *Session {
	if !o.syncing {
		return nil
	}

	o.gen++
	o.syncing = false
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}

	s := o.current
	o.current = nil
	if s == nil {
		return nil
	}

	for _, op := range s.Operations {
		if op.Status == StatusPending || op.Status == StatusInProgress {
			op.transition(StatusCancelled)
		}
	}
	now := o.now()
	s.EndTime = &now

	return s.clone()
}

// newOperation добавляет операцию в сессию и переводит ее в in_progress.
// Возвращает false, если сессия уже отменена.
func (o *Orchestrator) newOperation(r *run, typ OperationType, total int) (*Operation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gen != r.gen {
		return nil, false
	}

	op := &Operation{
		ID:         uuid.NewString(),
		Type:       typ,
		Status:     StatusPending,
		TotalItems: total,
		Errors:     []string{},
		StartTime:  o.now(),
	}
	op.transition(StatusInProgress)
	r.session.Operations = append(r.session.Operations, op)

	return op, true
}

// closeOperation ставит итоговый статус. Отмененная операция не меняется.
func (o *Orchestrator) closeOperation(r *run, op *Operation, failed bool) {
	o.mu.Lock()
	status := StatusCompleted
	if failed {
		status = StatusFailed
	}
	changed := op.transition(status)
	snap := op.clone()
	o.mu.Unlock()

	if changed {
		o.progress(snap)
	}
}

// itemDone учитывает обработанный элемент. Возвращает false, если сессия отменена.
func (o *Orchestrator) itemDone(r *run, op *Operation, itemErr error, opErr error) bool {
	o.mu.Lock()
	if o.gen != r.gen {
		o.mu.Unlock()
		return false
	}

	op.advance()
	switch {
	case itemErr != nil:
		r.session.FailedChanges++
		op.Errors = append(op.Errors, itemErr.Error())
	default:
		r.session.SuccessfulChanges++
	}
	if opErr != nil {
		op.Errors = append(op.Errors, opErr.Error())
	}
	snap := op.clone()
	o.mu.Unlock()

	o.progress(snap)

	return true
}

func (o *Orchestrator) progress(op Operation) {
	for _, obs := range o.observerList() {
		obs.OnSyncProgress(op)
	}
}

// runBatch обрабатывает пачку изменений одной операцией.
func (o *Orchestrator) runBatch(r *run, batch []changes.Record) {
	op, ok := o.newOperation(r, OpUpload, len(batch))
	if !ok {
		return
	}

	failed := false
	for _, rec := range batch {
		if r.ctx.Err() != nil {
			return
		}

		// Начатая сетевая запись доводится до конца даже при отмене сессии.
		itemErr := o.processChange(context.WithoutCancel(r.ctx), rec)

		// Запись могла уже обработать новая сессия. Устаревшая учитывает только
		// подтвержденное применение, иначе отправленное изменение вернется в очередь.
		if !o.isCurrent(r) {
			if itemErr == nil {
				if err := o.markSynced(r.ctx, rec); err != nil {
					o.log.Error("Ошибка учета изменения", "id", rec.ID, "error", err)
				}
			}
			return
		}

		var opErr error
		if itemErr == nil {
			opErr = o.markSynced(r.ctx, rec)
		} else {
			opErr = o.markFailed(r.ctx, rec, itemErr)
		}
		if opErr != nil {
			failed = true
			o.log.Error("Ошибка учета изменения", "id", rec.ID, "error", opErr)
		}

		if !o.itemDone(r, op, itemErr, opErr) {
			return
		}

		// Связь потеряна: остаток пачки ждет восстановления.
		if linkLost(itemErr) {
			o.log.Warn("Связь с сервером потеряна, синхронизация остановлена", "id", rec.ID, "error", itemErr)
			o.conn.Confirm(false)
			o.closeOperation(r, op, true)
			return
		}
	}

	o.closeOperation(r, op, failed)
}

func linkLost(err error) bool {
	return errs.Is(err, errs.Offline) || errs.Is(err, errs.NotConnected)
}

func (o *Orchestrator) isCurrent(r *run) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen == r.gen
}

// processChange отправляет одно изменение на сервер.
func (o *Orchestrator) processChange(ctx context.Context, rec changes.Record) error {
	if rec.ResourceKind != changes.ResourceGameSave {
		return fmt.Errorf("unsupported resource kind %q", rec.ResourceKind)
	}

	p, err := changes.DecodeSavePayload(rec.Payload)
	if err != nil {
		return fmt.Errorf("decode change %s: %w", rec.ID, err)
	}

	switch rec.Kind {
	case changes.KindCreate, changes.KindUpdate:
		_, err = o.remote.Upload(ctx, p.SlotID, p.Snapshot())
	case changes.KindDelete:
		err = o.remote.Delete(ctx, p.SlotID)
		if errs.Is(err, errs.NotFound) {
			err = nil
		}
	default:
		err = fmt.Errorf("unknown change kind %q", rec.Kind)
	}

	return err
}

func (o *Orchestrator) markSynced(ctx context.Context, rec changes.Record) error {
	o.cancelRetry(rec.ID)

	if err := o.queue.Remove(context.WithoutCancel(ctx), rec.ID); err != nil {
		return err
	}

	o.log.Debug("Изменение синхронизировано", "id", rec.ID, "kind", rec.Kind)

	return nil
}

func (o *Orchestrator) markFailed(ctx context.Context, rec changes.Record, cause error) error {
	now := o.now()
	rec.RetryCount++
	rec.LastAttempt = &now

	if err := o.queue.Update(context.WithoutCancel(ctx), rec); err != nil {
		return err
	}

	if rec.RetryCount < o.cfg.MaxRetries {
		delay := Backoff(o.cfg.RetryBaseDelay, rec.RetryCount)
		o.scheduleRetry(rec.ID, delay)
		o.log.Warn("Изменение не отправлено, повтор запланирован",
			"id", rec.ID,
			"attempt", rec.RetryCount,
			"delay", delay,
			"error", cause,
		)
		return nil
	}

	o.log.Warn("Изменение отложено до ручного повтора",
		"id", rec.ID,
		"attempts", rec.RetryCount,
		"error", cause,
	)

	return nil
}

func (o *Orchestrator) scheduleRetry(id string, delay time.Duration) {
	stop := o.schedule(delay, func() { o.retry(id) })

	o.mu.Lock()
	prev, ok := o.retries[id]
	o.retries[id] = stop
	o.mu.Unlock()

	if ok {
		prev()
	}
}

func (o *Orchestrator) cancelRetry(id string) {
	o.mu.Lock()
	stop, ok := o.retries[id]
	delete(o.retries, id)
	o.mu.Unlock()

	if ok {
		stop()
	}
}

func (o *Orchestrator) stopRetries() {
	o.mu.Lock()
	pending := o.retries
	o.retries = make(map[string]func())
	o.mu.Unlock()

	for _, stop := range pending {
		stop()
	}
}

// retry повторяет одно изменение отдельной сессией. Если идет другая сессия,
// запись подождет следующего запуска.
func (o *Orchestrator) retry(id string) {
	o.mu.Lock()
	delete(o.retries, id)
	o.mu.Unlock()

	rec, ok := o.queue.Get(id)
	if !ok || rec.Synced || rec.RetryCount >= o.cfg.MaxRetries {
		return
	}

	r, err := o.begin(o.context(), "sync.retry", false)
	if err != nil {
		if !errs.Is(err, errs.AlreadySyncing) {
			o.log.Warn("Повтор отложен", "id", id, "error", err)
			o.emitError("retry failed", err)
		}
		return
	}

	o.started(r, 1)
	o.runBatch(r, []changes.Record{rec})
	o.finish(r)
}

func (o *Orchestrator) loadLastSync() {
	if o.state == nil {
		return
	}

	b, err := o.state.Get(context.Background(), LastSyncKey)
	if err != nil {
		return
	}

	var t time.Time
	if err := t.UnmarshalText(b); err != nil {
		o.log.Warn("Время последней синхронизации не прочитано", "error", err)
		return
	}

	o.mu.Lock()
	o.lastSync = t
	o.mu.Unlock()
}

func (o *Orchestrator) persistLastSync(t time.Time) {
	if o.state == nil {
		return
	}

	b, err := t.MarshalText()
	if err == nil {
		err = o.state.Store(context.Background(), LastSyncKey, b, LastSyncCategory, 0)
	}
	if err != nil {
		o.log.Error("Не удалось сохранить время синхронизации", "error", err)
		o.emitError("persist last sync time", errs.E("sync.finish", errs.PersistenceFailure, err))
	}
}

func (o *Orchestrator) emitError(msg string, err error) {
	for _, obs := range o.observerList() {
		obs.OnError(msg, err)
	}
}

func (o *Orchestrator) observerList() []Observer {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Observer, 0, len(o.observers))
	for _, obs := range o.observers {
		out = append(out, obs)
	}
	return out
}

func (o *Orchestrator) context() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.baseCtx
}
