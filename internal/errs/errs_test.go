package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	base := errors.New("connection refused")
	err := E("transport.upload", Offline, base)

	assert.True(t, errors.Is(err, ErrOffline))
	assert.False(t, errors.Is(err, ErrCorrupt))
	assert.True(t, errors.Is(err, base))

	wrapped := fmt.Errorf("sync: %w", err)
	assert.True(t, errors.Is(wrapped, ErrOffline))
	assert.Equal(t, Offline, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "full",
			err:  E("transport.download", Corrupt, errors.New("checksum mismatch")),
			want: "transport.download: corrupt: checksum mismatch",
		},
		{
			name: "without op",
			err:  &Error{Kind: NotFound},
			want: "not found",
		},
		{
			name: "invalid slot",
			err:  E("transport.upload", InvalidSlot, errors.New("slot 9 outside 1..5")),
			want: "transport.upload: invalid slot: slot 9 outside 1..5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
	assert.True(t, Is(E("op", AlreadySyncing, nil), AlreadySyncing))
	assert.False(t, Is(nil, AlreadySyncing))
}
