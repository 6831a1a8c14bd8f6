package transport

import (
	"errors"
	"net"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"

	"savesync/internal/errs"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "saves/u1/3", objectKey("u1", 3))

	slot, ok := parseSlot("saves/u1/", "saves/u1/3")
	assert.True(t, ok)
	assert.Equal(t, 3, slot)

	_, ok = parseSlot("saves/u1/", "saves/u1/nested/3")
	assert.False(t, ok)
	_, ok = parseSlot("saves/u1/", "saves/u2/3")
	assert.False(t, ok)
	_, ok = parseSlot("saves/u1/", "saves/u1/notes.txt")
	assert.False(t, ok)
}

func TestMetaValue(t *testing.T) {
	meta := map[string]string{
		"Checksum":            "v1:aa",
		"X-Amz-Meta-Version":  "3",
		"Last-Saved":          "2024-01-01T00:00:00Z",
	}

	assert.Equal(t, "v1:aa", metaValue(meta, metaChecksum))
	assert.Equal(t, "3", metaValue(meta, metaVersion))
	assert.Equal(t, "2024-01-01T00:00:00Z", metaValue(meta, metaLastSaved))
	assert.Equal(t, "", metaValue(meta, "missing"))
}

func TestMinioBackend_MapError(t *testing.T) {
	m := &MinioBackend{log: slog.Default()}

	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{"missing object", minio.ErrorResponse{Code: "NoSuchKey"}, errs.NotFound},
		{"bad key", minio.ErrorResponse{Code: "InvalidAccessKeyId"}, errs.NotAuthenticated},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, errs.NotConnected},
		{"server error", minio.ErrorResponse{Code: "InternalError"}, errs.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.KindOf(m.mapError("minio.get", tt.err)))
		})
	}
}
