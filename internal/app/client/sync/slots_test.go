package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savesync/internal/app/client/conflict"
	"savesync/internal/app/client/saves"
	"savesync/internal/app/client/transport"
	"savesync/internal/utils/checksum"
)

func (e *testEnv) putRemote(t *testing.T, slot int, data string, lastSaved int64) {
	t.Helper()

	_, err := e.backend.Put(context.Background(), transport.Identity{UserID: "player"}, transport.RemoteRecord{
		SlotID:    slot,
		Data:      []byte(data),
		Checksum:  checksum.Sum([]byte(data)),
		Version:   1,
		LastSaved: time.UnixMilli(lastSaved),
	})
	require.NoError(t, err)
}

func (e *testEnv) putLocal(t *testing.T, slot int, data string, lastSaved int64) {
	t.Helper()

	require.NoError(t, e.local.Save(context.Background(), slot, saves.Snapshot{
		Data:      []byte(data),
		Version:   1,
		LastSaved: time.UnixMilli(lastSaved),
	}))
}

func TestSyncSlots(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.putLocal(t, 2, `{"slot":2}`, 1000)
	e.putLocal(t, 3, `{"local":3}`, 5000)
	e.putRemote(t, 3, `{"remote":3}`, 9000)
	e.putRemote(t, 4, `{"remote":4}`, 4000)
	// одинаковое время: конфликта нет, передачи нет
	e.putLocal(t, 5, `{"local":5}`, 7000)
	e.putRemote(t, 5, `{"remote":5}`, 7500)

	o := e.orchestrator(Config{})

	s, err := o.SyncSlots(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 4, s.TotalChanges)
	assert.Equal(t, 4, s.SuccessfulChanges)
	require.Len(t, s.Operations, 1)
	assert.Equal(t, OpBidirectional, s.Operations[0].Type)
	assert.Equal(t, StatusCompleted, s.Operations[0].Status)

	states, err := e.adapter.ListSlots(ctx)
	require.NoError(t, err)
	assert.True(t, states[1].RemoteExists, "slot 2 uploaded")

	local3, err := e.local.Load(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"remote":3}`), local3.Data)

	local4, err := e.local.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"remote":4}`), local4.Data)

	local5, err := e.local.Load(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"local":5}`), local5.Data)

	require.Len(t, s.Conflicts, 1)
	c := s.Conflicts[0]
	assert.Equal(t, 3, c.SlotID)
	assert.Equal(t, conflict.OutcomeServer, c.Resolution)
	assert.Equal(t, conflict.ResolvedByAuto, c.ResolvedBy)
	assert.True(t, time.UnixMilli(5000).Equal(c.LocalLastSaved))
	assert.True(t, time.UnixMilli(9000).Equal(c.RemoteLastSaved))
}

func TestSyncSlots_PromptSkip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.putLocal(t, 1, `{"local":1}`, 20_000)
	e.putRemote(t, 1, `{"remote":1}`, 10_000)

	o := e.orchestrator(Config{Policy: conflict.PolicyPrompt})

	var asked []conflict.Conflict
	o.SetPrompter(func(_ context.Context, c conflict.Conflict) (conflict.Decision, error) {
		asked = append(asked, c)
		return conflict.DecisionSkip, nil
	})

	s, err := o.SyncSlots(ctx, false)
	require.NoError(t, err)

	require.Len(t, asked, 1)
	assert.Equal(t, 1, asked[0].SlotID)

	require.Len(t, s.Conflicts, 1)
	assert.Equal(t, conflict.OutcomeSkipped, s.Conflicts[0].Resolution)
	assert.Equal(t, conflict.ResolvedByUser, s.Conflicts[0].ResolvedBy)
	assert.Empty(t, e.remote.uploaded())

	remote, err := e.adapter.Download(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"remote":1}`), remote.Data)
}

func TestSyncSlots_CorruptRemote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.backend.Put(ctx, transport.Identity{UserID: "player"}, transport.RemoteRecord{
		SlotID:   2,
		Data:     []byte(`{"tampered":true}`),
		Checksum: checksum.Sum([]byte(`{"original":true}`)),
	})
	require.NoError(t, err)

	o := e.orchestrator(Config{})

	s, err := o.SyncSlots(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 1, s.FailedChanges)
	require.Len(t, s.Operations[0].Errors, 1)
	assert.Contains(t, s.Operations[0].Errors[0], "slot 2")

	ok, err := e.local.Exists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}
