package autosave

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"savesync/internal/app/client/changes"
	"savesync/internal/app/client/saves"
	"savesync/internal/errs"
)

type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) Authenticated() bool {
	return m.Called().Bool(0)
}

func (m *MockMirror) Upload(ctx context.Context, slot int, snap saves.Snapshot) (string, error) {
	args := m.Called(ctx, slot, snap)
	return args.String(0), args.Error(1)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) TrackSave(ctx context.Context, kind changes.Kind, slot int, snap saves.Snapshot, priority changes.Priority) (changes.Record, error) {
	args := m.Called(ctx, kind, slot, snap, priority)
	return args.Get(0).(changes.Record), args.Error(1)
}

type failingSaves struct {
	saves.Manager
}

func (failingSaves) Save(context.Context, int, saves.Snapshot) error {
	return errors.New("disk full")
}

func state(level int, lastSaved int64) *saves.Snapshot {
	return &saves.Snapshot{
		Data:      []byte(fmt.Sprintf(`{"version":1,"lastSaved":%d,"level":%d}`, lastSaved, level)),
		Version:   1,
		LastSaved: time.UnixMilli(lastSaved),
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newSupervisor(t *testing.T, m Saves, mirror Mirror, tracker Tracker, cfg Config) (*Supervisor, *clock) {
	t.Helper()

	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	s := New(m, mirror, tracker, cfg, slog.Default())
	s.now = c.now

	return s, c
}

func TestTriggerAutoSave_TooSoon(t *testing.T) {
	m := saves.NewMemoryManager()
	s, c := newSupervisor(t, m, nil, nil, DefaultConfig())
	ctx := context.Background()

	ev := s.TriggerAutoSave(ctx, TriggerManual, state(1, 1000), false)
	require.True(t, ev.Success, ev.Error)

	c.advance(10 * time.Second)
	ev = s.TriggerAutoSave(ctx, TriggerManual, state(2, 2000), false)
	assert.False(t, ev.Success)
	assert.ErrorIs(t, ev.Err, ErrTooSoon)
	assert.Contains(t, ev.Error, "too soon")

	got, err := m.Load(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, state(1, 1000).Data, got.Data)

	// отклоненная попытка в историю не попадает
	assert.Len(t, s.History(), 1)

	ev = s.TriggerAutoSave(ctx, TriggerManual, state(3, 3000), true)
	assert.True(t, ev.Success)

	c.advance(31 * time.Second)
	ev = s.TriggerAutoSave(ctx, TriggerManual, state(4, 4000), false)
	assert.True(t, ev.Success)
}

func TestTriggerAutoSave_Rejections(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Triggers = []Trigger{TriggerManual}
	s, _ := newSupervisor(t, saves.NewMemoryManager(), nil, nil, cfg)

	ev := s.TriggerAutoSave(ctx, TriggerAchievement, state(1, 1000), false)
	assert.ErrorIs(t, ev.Err, ErrTriggerDisabled)

	ev = s.TriggerAutoSave(ctx, TriggerManual, nil, false)
	assert.ErrorIs(t, ev.Err, ErrNoState)

	s.Disable()
	ev = s.TriggerAutoSave(ctx, TriggerManual, state(1, 1000), true)
	assert.ErrorIs(t, ev.Err, ErrDisabled)

	s.Enable()
	ev = s.TriggerAutoSave(ctx, TriggerManual, state(1, 1000), true)
	assert.True(t, ev.Success)
}

func TestTriggerAutoSave_BackupBeforeOverwrite(t *testing.T) {
	m := saves.NewMemoryManager()
	s, _ := newSupervisor(t, m, nil, nil, DefaultConfig())
	ctx := context.Background()

	require.True(t, s.TriggerAutoSave(ctx, TriggerManual, state(1, 1000), true).Success)
	require.True(t, s.TriggerAutoSave(ctx, TriggerManual, state(2, 2000), true).Success)

	backup, err := m.Load(ctx, BackupSlot(0))
	require.NoError(t, err)
	assert.Equal(t, state(1, 1000).Data, backup.Data)
	assert.Equal(t, -1, BackupSlot(0))
}

func TestTriggerAutoSave_PersistenceFailure(t *testing.T) {
	s, _ := newSupervisor(t, failingSaves{saves.NewMemoryManager()}, nil, nil, DefaultConfig())

	ev := s.TriggerAutoSave(context.Background(), TriggerManual, state(1, 1000), false)
	assert.False(t, ev.Success)
	assert.True(t, errors.Is(ev.Err, errs.ErrPersistenceFailure))
	assert.Len(t, s.History(), 1)
	assert.True(t, s.LastSaveTime().IsZero())
}

func TestTriggerAutoSave_CloudMirror(t *testing.T) {
	ctx := context.Background()

	t.Run("uploaded", func(t *testing.T) {
		mirror := new(MockMirror)
		tracker := new(MockTracker)
		s, _ := newSupervisor(t, saves.NewMemoryManager(), mirror, tracker, DefaultConfig())

		mirror.On("Authenticated").Return(true)
		mirror.On("Upload", mock.Anything, 0, mock.Anything).Return("id-1", nil)

		ev := s.TriggerAutoSave(ctx, TriggerManual, state(1, 1000), false)
		assert.True(t, ev.Success)

		mirror.AssertExpectations(t)
		tracker.AssertNotCalled(t, "TrackSave", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mirror failure is queued", func(t *testing.T) {
		mirror := new(MockMirror)
		tracker := new(MockTracker)
		s, _ := newSupervisor(t, saves.NewMemoryManager(), mirror, tracker, DefaultConfig())

		mirror.On("Authenticated").Return(true)
		mirror.On("Upload", mock.Anything, 0, mock.Anything).Return("", errs.E("transport.upload", errs.Offline, nil))
		tracker.On("TrackSave", mock.Anything, changes.KindUpdate, 0, mock.Anything, changes.PriorityHigh).
			Return(changes.Record{ID: "game_save_1"}, nil)

		ev := s.TriggerAutoSave(ctx, TriggerLevelComplete, state(1, 1000), false)
		assert.True(t, ev.Success, "local save stays authoritative")

		mirror.AssertExpectations(t)
		tracker.AssertExpectations(t)
	})

	t.Run("not authenticated", func(t *testing.T) {
		mirror := new(MockMirror)
		tracker := new(MockTracker)
		s, _ := newSupervisor(t, saves.NewMemoryManager(), mirror, tracker, DefaultConfig())

		mirror.On("Authenticated").Return(false)
		tracker.On("TrackSave", mock.Anything, changes.KindUpdate, 0, mock.Anything, changes.PriorityCritical).
			Return(changes.Record{}, nil)

		ev := s.HandleLifecycle(ctx, SignalTerminating)
		assert.ErrorIs(t, ev.Err, ErrNoState)

		s.SetGameState(func() (saves.Snapshot, bool) { return *state(5, 5000), true })
		ev = s.HandleLifecycle(ctx, SignalTerminating)
		assert.True(t, ev.Success)
		assert.Equal(t, TriggerShutdown, ev.Trigger)

		mirror.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
		tracker.AssertExpectations(t)
	})
}

func TestHistoryBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 3
	s, _ := newSupervisor(t, saves.NewMemoryManager(), nil, nil, cfg)

	for i := 1; i <= 5; i++ {
		s.TriggerAutoSave(context.Background(), TriggerManual, state(i, int64(i)*1000), true)
	}

	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, len(state(3, 3000).Data), h[0].Size)
	for _, ev := range h {
		assert.True(t, ev.Success)
	}
}

func TestLoadAutoSave(t *testing.T) {
	ctx := context.Background()
	valid := &saves.Snapshot{Data: []byte(`{"version":2,"lastSaved":1000}`), Version: 2, LastSaved: time.UnixMilli(1000)}

	t.Run("valid", func(t *testing.T) {
		m := saves.NewMemoryManager()
		s, _ := newSupervisor(t, m, nil, nil, DefaultConfig())
		require.NoError(t, m.Save(ctx, 0, *valid))

		got, err := s.LoadAutoSave(ctx)
		require.NoError(t, err)
		assert.Equal(t, valid.Data, got.Data)
	})

	t.Run("recovers from backup", func(t *testing.T) {
		m := saves.NewMemoryManager()
		s, _ := newSupervisor(t, m, nil, nil, DefaultConfig())
		require.NoError(t, m.Save(ctx, 0, saves.Snapshot{Data: []byte(`{"level":3}`), LastSaved: time.UnixMilli(2000)}))
		require.NoError(t, m.Save(ctx, BackupSlot(0), *valid))

		got, err := s.LoadAutoSave(ctx)
		require.NoError(t, err)
		assert.Equal(t, valid.Data, got.Data)

		primary, err := m.Load(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, valid.Data, primary.Data, "recovered copy is written back")
	})

	t.Run("future timestamp", func(t *testing.T) {
		m := saves.NewMemoryManager()
		s, c := newSupervisor(t, m, nil, nil, DefaultConfig())
		future := *valid
		future.LastSaved = c.now().Add(time.Hour)
		require.NoError(t, m.Save(ctx, 0, future))

		_, err := s.LoadAutoSave(ctx)
		assert.True(t, errors.Is(err, errs.ErrCorrupt))
	})

	t.Run("both corrupt", func(t *testing.T) {
		m := saves.NewMemoryManager()
		s, _ := newSupervisor(t, m, nil, nil, DefaultConfig())
		require.NoError(t, m.Save(ctx, 0, saves.Snapshot{Data: []byte(`not json`)}))
		require.NoError(t, m.Save(ctx, BackupSlot(0), saves.Snapshot{Data: []byte(`{"version":1}`)}))

		got, err := s.LoadAutoSave(ctx)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, errs.ErrCorrupt))
	})

	t.Run("missing", func(t *testing.T) {
		s, _ := newSupervisor(t, saves.NewMemoryManager(), nil, nil, DefaultConfig())

		_, err := s.LoadAutoSave(ctx)
		assert.True(t, errors.Is(err, errs.ErrNotFound))
	})
}

func TestParseTrigger(t *testing.T) {
	tr, err := ParseTrigger("level_complete")
	require.NoError(t, err)
	assert.Equal(t, TriggerLevelComplete, tr)

	_, err = ParseTrigger("tile_moved")
	assert.Error(t, err)
}
