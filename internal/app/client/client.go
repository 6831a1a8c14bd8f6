package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"savesync/internal/app/client/autosave"
	"savesync/internal/app/client/changes"
	"savesync/internal/app/client/config"
	"savesync/internal/app/client/conflict"
	"savesync/internal/app/client/network"
	"savesync/internal/app/client/saves"
	"savesync/internal/app/client/store"
	"savesync/internal/app/client/sync"
	"savesync/internal/app/client/transport"
	"savesync/internal/errs"
)

// shutdownTimeout ограничивает сохранение при завершении процесса.
const shutdownTimeout = 5 * time.Second

// authenticator - бэкенд со своей учетной системой (HTTP API).
type authenticator interface {
	Register(ctx context.Context, login, password string) error
	Login(ctx context.Context, login, password string) (string, error)
}

// App - движок синхронизации сохранений. Создается один раз на процесс.
type App struct {
	config   *config.Config
	log      *slog.Logger
	store    *store.Store
	saves    saves.Manager
	backend  transport.Backend
	auth     authenticator
	adapter  *transport.Adapter
	conn     *network.Connectivity
	monitor  *network.Monitor
	tracker  *changes.Tracker
	sync     *sync.Orchestrator
	autosave *autosave.Supervisor
	state    *AppState
	token    string
	wg       gosync.WaitGroup
	cancel   context.CancelFunc
	mu       gosync.RWMutex
}

// AppState хранит состояние приложения между запусками
type AppState struct {
	UserLogin string    `json:"user_login"`
	LoggedIn  time.Time `json:"logged_in"`
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg.StatePath)
	if err != nil {
		log.Warn("Не удалось загрузить состояние приложения", "error", err)
		state = &AppState{}
	}

	kv, err := store.Open(cfg.StorePath, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища: %w", err)
	}

	// Локальные слоты (используем SQLite)
	var local saves.Manager
	sqlite, err := saves.NewSQLiteManager(cfg.SavesPath)
	if err != nil {
		log.Warn("Не удалось инициализировать SQLite, используем память", "error", err)
		local = saves.NewMemoryManager()
	} else {
		local = sqlite
	}

	backend, auth, err := newBackend(cfg, log)
	if err != nil {
		_ = kv.Close()
		_ = local.Close()
		return nil, err
	}

	app := &App{
		config:  cfg,
		log:     log,
		store:   kv,
		saves:   local,
		backend: backend,
		auth:    auth,
		state:   state,
		conn:    network.NewConnectivity(true),
	}

	if token, err := os.ReadFile(cfg.TokenPath); err == nil {
		app.token = strings.TrimSpace(string(token))
		log.Debug("Токен загружен из файла")
	}

	app.adapter = transport.NewAdapter(backend, app, app.conn, cfg.MaxSlots, log, transport.WithAutoSaveSlot(cfg.AutoSave.Slot))
	app.monitor = network.NewMonitor(app.adapter, network.MonitorConfig{Interval: cfg.ProbeInterval}, log,
		network.WithReachability(app.conn.Confirm))

	app.tracker = changes.NewTracker(kv, changes.Config{
		TTL:        cfg.ChangeTTL,
		MaxRetries: cfg.Sync.MaxRetries,
	}, log)
	if _, err := app.tracker.Load(context.Background()); err != nil {
		log.Error("Очередь изменений не восстановлена", "error", err)
	}

	policy, err := conflict.ParsePolicy(cfg.Sync.ConflictPolicy)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.sync = sync.New(sync.Deps{
		Queue:        app.tracker,
		Remote:       app.adapter,
		Local:        local,
		State:        kv,
		Quality:      app.monitor,
		Connectivity: app.conn,
	}, sync.Config{
		BatchSize:      cfg.Sync.BatchSize,
		MaxRetries:     cfg.Sync.MaxRetries,
		RetryBaseDelay: cfg.Sync.RetryBaseDelay,
		Interval:       cfg.Sync.Interval,
		Policy:         policy,
	}, log)

	asCfg, err := autosaveConfig(cfg.AutoSave)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.autosave = autosave.New(local, app.adapter, app.sync, asCfg, log)

	return app, nil
}

func newBackend(cfg *config.Config, log *slog.Logger) (transport.Backend, authenticator, error) {
	switch cfg.RemoteBackend {
	case config.BackendMinio:
		mb, err := transport.NewMinioBackend(transport.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			UseSSL:    cfg.Minio.UseSSL,
		}, log)
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if err := mb.EnsureBucket(ctx); err != nil {
			log.Warn("Бакет не проверен, работаем офлайн", "error", err)
		}
		return mb, nil, nil
	case config.BackendMemory:
		return transport.NewMemoryBackend(), nil, nil
	default:
		h := transport.NewHTTPBackend(cfg.ServerAddress, cfg.EnableTLS, cfg.RequestTimeout, log)
		return h, h, nil
	}
}

func autosaveConfig(c config.AutoSave) (autosave.Config, error) {
	out := autosave.DefaultConfig()
	out.Enabled = c.Enabled
	out.Interval = c.Interval
	out.MinGap = c.MinGap
	out.Slot = c.Slot
	out.Backup = c.Backup
	out.CloudMirror = c.CloudMirror

	if len(c.Triggers) > 0 {
		out.Triggers = make([]autosave.Trigger, 0, len(c.Triggers))
		for _, s := range c.Triggers {
			t, err := autosave.ParseTrigger(s)
			if err != nil {
				return out, err
			}
			out.Triggers = append(out.Triggers, t)
		}
	}

	return out, nil
}

func loadAppState(path string) (*AppState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &AppState{}, nil
	}
	if err != nil {
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (a *App) saveAppState() error {
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(a.config.StatePath, data, 0600)
}

// Current реализует transport.Session.
func (a *App) Current() (transport.Identity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.state.UserLogin == "" {
		return transport.Identity{}, false
	}
	if a.auth != nil && a.token == "" {
		return transport.Identity{}, false
	}

	return transport.Identity{UserID: a.state.UserLogin, Token: a.token}, true
}

func (a *App) IsAuthenticated() bool {
	_, ok := a.Current()
	return ok
}

func (a *App) UserLogin() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.UserLogin
}

// Register регистрирует пользователя на сервере.
func (a *App) Register(ctx context.Context, login, password string) error {
	if a.auth == nil {
		return fmt.Errorf("бэкенд %s не поддерживает регистрацию", a.config.RemoteBackend)
	}
	return a.auth.Register(ctx, login, password)
}

// Login выполняет вход и сохраняет токен. Бэкенды без учетной системы
// запоминают только логин, который становится пространством имен слотов.
func (a *App) Login(ctx context.Context, login, password string) error {
	var token string
	if a.auth != nil {
		t, err := a.auth.Login(ctx, login, password)
		if err != nil {
			return err
		}
		token = t
	}

	if token != "" {
		if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
			return fmt.Errorf("ошибка сохранения токена: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = token
	a.state.UserLogin = login
	a.state.LoggedIn = time.Now()
	if err := a.saveAppState(); err != nil {
		return fmt.Errorf("ошибка сохранения состояния: %w", err)
	}

	a.log.Info("Вход выполнен", "login", login)

	return nil
}

// Logout удаляет токен
func (a *App) Logout() error {
	if err := os.Remove(a.config.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления токена: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = ""
	a.state.UserLogin = ""
	return a.saveAppState()
}

// SaveSlot пишет слот локально и ставит изменение в очередь синхронизации.
func (a *App) SaveSlot(ctx context.Context, slot int, snap saves.Snapshot, priority changes.Priority) (changes.Record, error) {
	const op = "client.save_slot"

	if snap.LastSaved.IsZero() {
		snap.LastSaved = time.Now()
	}

	existed, err := a.saves.Exists(ctx, slot)
	if err != nil {
		return changes.Record{}, errs.E(op, errs.PersistenceFailure, err)
	}
	if err := a.saves.Save(ctx, slot, snap); err != nil {
		return changes.Record{}, errs.E(op, errs.PersistenceFailure, err)
	}

	kind := changes.KindCreate
	if existed {
		kind = changes.KindUpdate
	}

	return a.sync.TrackSave(ctx, kind, slot, snap, priority)
}

func (a *App) LoadSlot(ctx context.Context, slot int) (*saves.Snapshot, error) {
	snap, err := a.saves.Load(ctx, slot)
	if errors.Is(err, saves.ErrNotFound) {
		return nil, errs.E("client.load_slot", errs.NotFound, err)
	}
	return snap, err
}

func (a *App) ListSlots(ctx context.Context) ([]saves.SlotInfo, error) {
	return a.saves.List(ctx)
}

// RemoteSlots возвращает состояние слотов на сервере.
func (a *App) RemoteSlots(ctx context.Context) ([]transport.SlotState, error) {
	return a.adapter.ListSlots(ctx)
}

// DeleteSlot удаляет слот локально и ставит удаление в очередь.
func (a *App) DeleteSlot(ctx context.Context, slot int, priority changes.Priority) (changes.Record, error) {
	const op = "client.delete_slot"

	err := a.saves.Delete(ctx, slot)
	switch {
	case errors.Is(err, saves.ErrNotFound):
		return changes.Record{}, errs.E(op, errs.NotFound, err)
	case err != nil:
		return changes.Record{}, errs.E(op, errs.PersistenceFailure, err)
	}

	return a.sync.TrackSave(ctx, changes.KindDelete, slot, saves.Snapshot{LastSaved: time.Now()}, priority)
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Sync() *sync.Orchestrator {
	return a.sync
}

func (a *App) AutoSave() *autosave.Supervisor {
	return a.autosave
}

func (a *App) Monitor() *network.Monitor {
	return a.monitor
}

// StoreStats возвращает статистику локального хранилища.
func (a *App) StoreStats(ctx context.Context) (store.Stats, error) {
	return a.store.Stats(ctx)
}

// Run запускает фоновые циклы и блокируется до сигнала завершения или отмены ctx.
// Перед выходом выполняется одно аварийное автосохранение.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	go a.handleSignals(ctx)

	// Для memory сервер локальный, сигнал сети ему не нужен.
	if a.config.RemoteBackend != config.BackendMemory {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			network.WatchLink(ctx, a.config.ProbeInterval, network.LinkUp, a.sync.SetOnline)
		}()
	}

	a.wg.Add(3)
	go func() {
		defer a.wg.Done()
		a.monitor.Start(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.sync.Start(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.autosave.Start(ctx)
	}()

	a.log.Info("Клиент запущен",
		"backend", a.config.RemoteBackend,
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"pending", a.tracker.Pending(),
	)

	<-ctx.Done()
	a.wg.Wait()

	saveCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	a.autosave.HandleLifecycle(saveCtx, autosave.SignalTerminating)
	a.sync.CancelSync()

	a.log.Info("Клиент остановлен")

	return nil
}

func (a *App) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
		a.Shutdown()
	case <-ctx.Done():
	}
}

// Shutdown останавливает Run.
func (a *App) Shutdown() {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

// Close освобождает хранилища.
func (a *App) Close() {
	if a.sync != nil {
		a.sync.CancelSync()
	}

	if err := a.saves.Close(); err != nil {
		a.log.Warn("Ошибка закрытия слотов", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("Ошибка закрытия хранилища", "error", err)
	}
}
