package save

import "errors"

var (
	ErrNotFound         = errors.New("save not found")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidSlot      = errors.New("invalid slot")
)
