package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type pingOutput struct{}

func TestLogger_Middleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	mw := New(log)

	_, api := humatest.New(t)
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		huma.Register(api, huma.Operation{
			OperationID:   "ping-" + strings.ToLower(method),
			Method:        method,
			Path:          "/ping",
			DefaultStatus: http.StatusOK,
			Middlewares:   huma.Middlewares{mw.Middleware()},
		}, func(context.Context, *struct{}) (*pingOutput, error) {
			return &pingOutput{}, nil
		})
	}
	huma.Register(api, huma.Operation{
		OperationID: "boom",
		Method:      http.MethodGet,
		Path:        "/boom",
		Middlewares: huma.Middlewares{mw.Middleware()},
	}, func(context.Context, *struct{}) (*pingOutput, error) {
		return nil, huma.Error500InternalServerError("boom")
	})

	api.Do(http.MethodHead, "/ping")
	assert.Empty(t, buf.String(), "successful HEAD probes are logged at debug")

	api.Get("/ping")
	api.Get("/boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ok, failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))

	assert.Equal(t, "INFO", ok["level"])
	assert.Equal(t, "ping-get", ok["operation"])
	assert.Equal(t, float64(http.StatusOK), ok["status"])
	assert.Equal(t, "http_logger", ok["component"])

	assert.Equal(t, "ERROR", failed["level"])
	assert.Equal(t, float64(http.StatusInternalServerError), failed["status"])
}
