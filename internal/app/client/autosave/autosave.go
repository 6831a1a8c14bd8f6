// Package autosave решает, когда сохранять состояние игры локально, страхует
// запись резервной копией и восстанавливает слот из нее при повреждении.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"savesync/internal/app/client/changes"
	"savesync/internal/app/client/saves"
	"savesync/internal/errs"
)

type Trigger string

const (
	TriggerPeriodic       Trigger = "periodic"
	TriggerLevelComplete  Trigger = "level_complete"
	TriggerItemAcquired   Trigger = "item_acquired"
	TriggerAchievement    Trigger = "achievement"
	TriggerManual         Trigger = "manual"
	TriggerVisibilityLost Trigger = "visibility_lost"
	TriggerShutdown       Trigger = "shutdown"
)

// AllTriggers - набор триггеров по умолчанию.
var AllTriggers = []Trigger{
	TriggerPeriodic,
	TriggerLevelComplete,
	TriggerItemAcquired,
	TriggerAchievement,
	TriggerManual,
	TriggerVisibilityLost,
	TriggerShutdown,
}

func ParseTrigger(s string) (Trigger, error) {
	t := Trigger(s)
	if !slices.Contains(AllTriggers, t) {
		return "", fmt.Errorf("unknown auto-save trigger %q", s)
	}
	return t, nil
}

// Signal - событие жизненного цикла среды выполнения.
type Signal int

const (
	SignalVisibilityLost Signal = iota
	SignalTerminating
)

var (
	ErrDisabled        = errors.New("auto-save is disabled")
	ErrTriggerDisabled = errors.New("auto-save trigger is disabled")
	ErrSavePending     = errors.New("auto-save already in progress")
	ErrTooSoon         = errors.New("too soon since last save")
	ErrNoState         = errors.New("no game state registered")
)

// SaveEvent - итог одной попытки автосохранения.
type SaveEvent struct {
	Trigger   Trigger   `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Size      int       `json:"size"`
	Error     string    `json:"error,omitempty"`
	Err       error     `json:"-"`
}

type Config struct {
	Enabled         bool
	Interval        time.Duration
	MinGap          time.Duration
	Slot            int
	Backup          bool
	CloudMirror     bool
	Triggers        []Trigger
	RequiredFields  []string
	FutureTolerance time.Duration
	HistorySize     int
}

func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Interval:        2 * time.Minute,
		MinGap:          30 * time.Second,
		Slot:            0,
		Backup:          true,
		CloudMirror:     true,
		Triggers:        AllTriggers,
		RequiredFields:  []string{"version", "lastSaved"},
		FutureTolerance: 5 * time.Minute,
		HistorySize:     50,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.MinGap <= 0 {
		c.MinGap = def.MinGap
	}
	if c.Triggers == nil {
		c.Triggers = def.Triggers
	}
	if c.FutureTolerance <= 0 {
		c.FutureTolerance = def.FutureTolerance
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	return c
}

// BackupSlot возвращает отрицательный номер резервного слота для slot.
func BackupSlot(slot int) int {
	return -(slot + 1)
}

// Saves - локальный менеджер слотов.
type Saves interface {
	Save(ctx context.Context, slot int, snap saves.Snapshot) error
	Load(ctx context.Context, slot int) (*saves.Snapshot, error)
}

// Mirror - облачная копия (transport.Adapter).
type Mirror interface {
	Authenticated() bool
	Upload(ctx context.Context, slot int, snap saves.Snapshot) (string, error)
}

// Tracker ставит слот в очередь синхронизации, если зеркалирование не удалось.
type Tracker interface {
	TrackSave(ctx context.Context, kind changes.Kind, slot int, snap saves.Snapshot, priority changes.Priority) (changes.Record, error)
}

// StateProvider возвращает текущее состояние игры.
type StateProvider func() (saves.Snapshot, bool)

type Supervisor struct {
	saves   Saves
	mirror  Mirror
	tracker Tracker
	cfg     Config
	log     *slog.Logger
	now     func() time.Time

	mu       gosync.Mutex
	enabled  bool
	pending  bool
	lastSave time.Time
	provider StateProvider
	history  []SaveEvent
}

// New создает супервизор. mirror и tracker могут быть nil.
func New(s Saves, mirror Mirror, tracker Tracker, cfg Config, log *slog.Logger) *Supervisor {
	cfg = cfg.withDefaults()
	return &Supervisor{
		saves:   s,
		mirror:  mirror,
		tracker: tracker,
		cfg:     cfg,
		log:     log.With(slog.String("component", "autosave")),
		now:     time.Now,
		enabled: cfg.Enabled,
	}
}

func (s *Supervisor) Enable() {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
}

func (s *Supervisor) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
}

// SetGameState регистрирует источник состояния для периодических и аварийных сохранений.
func (s *Supervisor) SetGameState(p StateProvider) {
	s.mu.Lock()
	s.provider = p
	s.mu.Unlock()
}

// History возвращает последние события, старые первыми.
func (s *Supervisor) History() []SaveEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Supervisor) LastSaveTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave
}

// TriggerAutoSave сохраняет state в слот автосохранения. Если state == nil,
// берется состояние из SetGameState. Отказ возвращается в событии, а не паникой
// и не ошибкой.
func (s *Supervisor) TriggerAutoSave(ctx context.Context, trigger Trigger, state *saves.Snapshot, force bool) SaveEvent {
	now := s.now()

	if state == nil {
		s.mu.Lock()
		provider := s.provider
		s.mu.Unlock()
		if provider != nil {
			if st, ok := provider(); ok {
				state = &st
			}
		}
	}

	s.mu.Lock()
	err := s.admitLocked(trigger, state, now, force)
	if err != nil {
		s.mu.Unlock()
		s.log.Debug("Автосохранение отклонено", "trigger", trigger, "reason", err)
		return SaveEvent{Trigger: trigger, Timestamp: now, Error: err.Error(), Err: err}
	}
	s.pending = true
	s.mu.Unlock()

	snap := *state
	if snap.LastSaved.IsZero() {
		snap.LastSaved = now
	}

	ev := SaveEvent{Trigger: trigger, Timestamp: now, Size: len(snap.Data)}

	if err := s.save(ctx, snap); err != nil {
		ev.Err = err
		ev.Error = err.Error()
		s.log.Error("Автосохранение не удалось", "trigger", trigger, "error", err)
	} else {
		ev.Success = true
		s.log.Info("Автосохранение выполнено", "trigger", trigger, "size", ev.Size)
		s.mirrorSave(ctx, trigger, snap)
	}

	s.mu.Lock()
	s.pending = false
	if ev.Success {
		s.lastSave = now
	}
	s.history = append(s.history, ev)
	if over := len(s.history) - s.cfg.HistorySize; over > 0 {
		s.history = slices.Delete(s.history, 0, over)
	}
	s.mu.Unlock()

	return ev
}

func (s *Supervisor) admitLocked(trigger Trigger, state *saves.Snapshot, now time.Time, force bool) error {
	switch {
	case !s.enabled:
		return ErrDisabled
	case !slices.Contains(s.cfg.Triggers, trigger):
		return fmt.Errorf("%w: %s", ErrTriggerDisabled, trigger)
	case s.pending:
		return ErrSavePending
	case state == nil:
		return ErrNoState
	case !force && !s.lastSave.IsZero() && now.Sub(s.lastSave) < s.cfg.MinGap:
		return ErrTooSoon
	}
	return nil
}

// save пишет слот, предварительно копируя его прежнее содержимое в резервный слот.
func (s *Supervisor) save(ctx context.Context, snap saves.Snapshot) error {
	const op = "autosave.save"

	if s.cfg.Backup {
		cur, err := s.saves.Load(ctx, s.cfg.Slot)
		switch {
		case err == nil:
			if err := s.saves.Save(ctx, BackupSlot(s.cfg.Slot), *cur); err != nil {
				s.log.Warn("Резервная копия не создана", "error", err)
			}
		case !errors.Is(err, saves.ErrNotFound):
			s.log.Warn("Текущий слот не прочитан для резервной копии", "error", err)
		}
	}

	if err := s.saves.Save(ctx, s.cfg.Slot, snap); err != nil {
		return errs.E(op, errs.PersistenceFailure, err)
	}

	return nil
}

// mirrorSave отправляет копию в облако. Неудача только логируется, слот
// при этом ставится в очередь синхронизации.
func (s *Supervisor) mirrorSave(ctx context.Context, trigger Trigger, snap saves.Snapshot) {
	if !s.cfg.CloudMirror || s.mirror == nil {
		return
	}

	if s.mirror.Authenticated() {
		_, err := s.mirror.Upload(ctx, s.cfg.Slot, snap)
		if err == nil {
			s.log.Debug("Автосохранение отправлено в облако", "slot", s.cfg.Slot)
			return
		}
		s.log.Warn("Облачная копия не отправлена", "error", err)
	}

	if s.tracker == nil {
		return
	}
	if _, err := s.tracker.TrackSave(ctx, changes.KindUpdate, s.cfg.Slot, snap, priorityFor(trigger)); err != nil {
		s.log.Error("Автосохранение не поставлено в очередь синхронизации", "error", err)
	}
}

func priorityFor(t Trigger) changes.Priority {
	switch t {
	case TriggerShutdown, TriggerVisibilityLost:
		return changes.PriorityCritical
	case TriggerLevelComplete, TriggerAchievement:
		return changes.PriorityHigh
	case TriggerPeriodic:
		return changes.PriorityLow
	default:
		return changes.PriorityMedium
	}
}

// LoadAutoSave читает слот автосохранения. Поврежденный слот восстанавливается
// из резервного и перезаписывается им.
func (s *Supervisor) LoadAutoSave(ctx context.Context) (*saves.Snapshot, error) {
	const op = "autosave.load"

	snap, err := s.saves.Load(ctx, s.cfg.Slot)
	switch {
	case err == nil:
		err = s.Validate(snap)
		if err == nil {
			return snap, nil
		}
		s.log.Warn("Слот автосохранения поврежден", "slot", s.cfg.Slot, "error", err)
	case errors.Is(err, saves.ErrNotFound):
	default:
		return nil, errs.E(op, errs.PersistenceFailure, err)
	}
	primaryErr := err

	backup, berr := s.saves.Load(ctx, BackupSlot(s.cfg.Slot))
	switch {
	case errors.Is(berr, saves.ErrNotFound):
		if errors.Is(primaryErr, saves.ErrNotFound) {
			return nil, errs.E(op, errs.NotFound, primaryErr)
		}
		return nil, errs.E(op, errs.Corrupt, primaryErr)
	case berr != nil:
		return nil, errs.E(op, errs.PersistenceFailure, berr)
	}

	if verr := s.Validate(backup); verr != nil {
		s.log.Error("Резервная копия тоже повреждена", "error", verr)
		return nil, errs.E(op, errs.Corrupt, fmt.Errorf("primary: %v; backup: %w", primaryErr, verr))
	}

	if err := s.saves.Save(ctx, s.cfg.Slot, *backup); err != nil {
		s.log.Error("Восстановленная копия не записана в основной слот", "error", err)
	} else {
		s.log.Info("Автосохранение восстановлено из резервной копии", "slot", s.cfg.Slot)
	}

	return backup, nil
}

// Validate проверяет целостность снимка: обязательные поля верхнего уровня
// и время сохранения не дальше FutureTolerance в будущем.
func (s *Supervisor) Validate(snap *saves.Snapshot) error {
	if snap == nil || len(snap.Data) == 0 {
		return errors.New("empty save data")
	}

	if len(s.cfg.RequiredFields) > 0 {
		var top map[string]json.RawMessage
		if err := json.Unmarshal(snap.Data, &top); err != nil {
			return fmt.Errorf("save data is not a JSON object: %w", err)
		}
		for _, f := range s.cfg.RequiredFields {
			if _, ok := top[f]; !ok {
				return fmt.Errorf("missing required field %q", f)
			}
		}
	}

	if snap.LastSaved.After(s.now().Add(s.cfg.FutureTolerance)) {
		return fmt.Errorf("last saved time %s is in the future", snap.LastSaved.Format(time.RFC3339))
	}

	return nil
}

// Start вызывает периодическое автосохранение до отмены ctx.
func (s *Supervisor) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Периодическое автосохранение остановлено")
			return
		case <-ticker.C:
			s.periodic(ctx)
		}
	}
}

func (s *Supervisor) periodic(ctx context.Context) {
	s.mu.Lock()
	registered := s.provider != nil
	s.mu.Unlock()
	if !registered {
		return
	}

	ev := s.TriggerAutoSave(ctx, TriggerPeriodic, nil, false)
	if !ev.Success && !isRejection(ev.Err) {
		s.log.Warn("Периодическое автосохранение не удалось", "error", ev.Err)
	}
}

// HandleLifecycle делает одно немедленное сохранение при потере видимости или завершении.
func (s *Supervisor) HandleLifecycle(ctx context.Context, sig Signal) SaveEvent {
	trigger := TriggerVisibilityLost
	if sig == SignalTerminating {
		trigger = TriggerShutdown
	}

	ev := s.TriggerAutoSave(ctx, trigger, nil, true)
	if !ev.Success && !isRejection(ev.Err) {
		s.log.Warn("Сохранение при завершении не удалось", "trigger", trigger, "error", ev.Err)
	}
	return ev
}

func isRejection(err error) bool {
	return errors.Is(err, ErrDisabled) ||
		errors.Is(err, ErrTriggerDisabled) ||
		errors.Is(err, ErrSavePending) ||
		errors.Is(err, ErrTooSoon) ||
		errors.Is(err, ErrNoState)
}
