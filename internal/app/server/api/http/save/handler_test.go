package save

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"savesync/internal/app/server/api/http/middleware/auth"
	"savesync/internal/domain/save"
	"savesync/internal/domain/session"
	"savesync/internal/utils/checksum"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Upsert(ctx context.Context, rec save.Record) (save.Record, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(save.Record), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, userID, slotID int) (save.Record, error) {
	args := m.Called(ctx, userID, slotID)
	return args.Get(0).(save.Record), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, userID, slotID int) error {
	return m.Called(ctx, userID, slotID).Error(0)
}

func (m *MockService) List(ctx context.Context, userID int) ([]save.Record, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]save.Record), args.Error(1)
}

type tokenSessions map[string]int

func (s tokenSessions) Create(context.Context, int) (string, error) {
	return "", errors.New("not used")
}

func (s tokenSessions) Validate(_ context.Context, token string) (int, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, session.ErrInvalid
}

const authHeader = "Authorization: Bearer good"

func newAPI(t *testing.T, svc save.Servicer) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)

	authMW := auth.New(tokenSessions{"good": 7}, slog.Default())
	NewHandler(svc, slog.Default(), huma.Middlewares{authMW.Middleware()}).SetupRoutes(api)
	return api
}

func TestHandler_Unauthorized(t *testing.T) {
	svc := new(MockService)
	api := newAPI(t, svc)

	resp := api.Get("/api/v1/saves")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/api/v1/saves/1", "Authorization: Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid or expired session")

	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestHandler_Put(t *testing.T) {
	svc := new(MockService)
	api := newAPI(t, svc)

	data := []byte(`{"level":4}`)
	sum := checksum.Sum(data)
	lastSaved := time.UnixMilli(1_700_000_000_000).UTC()

	svc.On("Upsert", mock.Anything, mock.MatchedBy(func(rec save.Record) bool {
		return rec.UserID == 7 && rec.SlotID == 2 && string(rec.Data) == string(data) &&
			rec.Checksum == sum && rec.Version == 3 && rec.LastSaved.Equal(lastSaved)
	})).Return(save.Record{ID: 17, SlotID: 2, Data: data, Checksum: sum, Version: 3, LastSaved: lastSaved}, nil)

	resp := api.Put("/api/v1/saves/2", authHeader, map[string]any{
		"data":       data,
		"checksum":   sum,
		"version":    3,
		"last_saved": lastSaved,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out saveResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 17, out.ID)
	assert.Equal(t, 2, out.SlotID)
	assert.Empty(t, out.Data)
	svc.AssertExpectations(t)
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: save.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "invalid slot", err: save.ErrInvalidSlot, wantStatus: http.StatusBadRequest},
		{name: "internal", err: errors.New("pool closed"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Get", mock.Anything, 7, 3).Return(save.Record{}, tt.err)

			resp := newAPI(t, svc).Get("/api/v1/saves/3", authHeader)
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}

	t.Run("checksum mismatch", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Upsert", mock.Anything, mock.Anything).Return(save.Record{}, save.ErrChecksumMismatch)

		resp := newAPI(t, svc).Put("/api/v1/saves/1", authHeader, map[string]any{
			"data":       []byte(`{}`),
			"checksum":   "v1:00",
			"version":    1,
			"last_saved": time.Now().UTC(),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

func TestHandler_ListAndDelete(t *testing.T) {
	svc := new(MockService)
	api := newAPI(t, svc)

	svc.On("List", mock.Anything, 7).Return([]save.Record{
		{ID: 1, SlotID: 0, Checksum: "v1:aa", Version: 1},
		{ID: 2, SlotID: 3, Checksum: "v1:bb", Version: 4},
	}, nil)
	svc.On("Delete", mock.Anything, 7, 3).Return(nil)

	resp := api.Get("/api/v1/saves", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var out listResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Saves, 2)
	assert.Equal(t, 3, out.Saves[1].SlotID)

	resp = api.Delete("/api/v1/saves/3", authHeader)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	svc.AssertExpectations(t)
}
