package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"savesync/internal/errs"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *HTTPBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPBackend(strings.TrimPrefix(srv.URL, "http://"), false, time.Second, slog.Default())
}

func TestHTTPBackend_Put(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/saves/3", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body saveBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []byte("data"), body.Data)
		assert.Equal(t, "v1:abc", body.Checksum)

		_ = json.NewEncoder(w).Encode(saveResponse{ID: 17, SlotID: 3, Checksum: body.Checksum, Version: body.Version})
	})

	rec, err := b.Put(context.Background(), Identity{Token: "tok"}, RemoteRecord{SlotID: 3, Data: []byte("data"), Checksum: "v1:abc", Version: 2})
	require.NoError(t, err)
	assert.Equal(t, "17", rec.ID)
	assert.Equal(t, 3, rec.SlotID)
}

func TestHTTPBackend_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, errs.ErrNotAuthenticated},
		{"not found", http.StatusNotFound, errs.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"title":"x","detail":"save not found"}`))
			})

			_, err := b.Get(context.Background(), Identity{Token: "t"}, 1)
			assert.True(t, errors.Is(err, tt.want))
			assert.Contains(t, err.Error(), "save not found")
		})
	}
}

func TestHTTPBackend_List(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/saves", r.URL.Path)
		_, _ = w.Write([]byte(`{"saves":[{"id":1,"slot_id":2,"checksum":"v1:aa","version":1,"last_saved":"2024-01-01T00:00:00Z"}]}`))
	})

	recs, err := b.List(context.Background(), Identity{Token: "t"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].SlotID)
	assert.Equal(t, 2024, recs[0].LastSaved.Year())
}

func TestHTTPBackend_PingAndLogin(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/health":
			assert.Equal(t, http.MethodHead, r.Method)
			w.WriteHeader(http.StatusOK)
		case "/api/v1/auth/login":
			_, _ = w.Write([]byte(`{"token":"abc"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	require.NoError(t, b.Ping(context.Background()))

	token, err := b.Login(context.Background(), "player", "Secret#1")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestHTTPBackend_PingUnreachable(t *testing.T) {
	b := NewHTTPBackend("127.0.0.1:1", false, 200*time.Millisecond, slog.Default())
	ctx := context.Background()

	assert.True(t, errors.Is(b.Ping(ctx), errs.ErrNotConnected))

	_, err := b.Get(ctx, Identity{Token: "t"}, 1)
	assert.True(t, errors.Is(err, errs.ErrNotConnected))
}
