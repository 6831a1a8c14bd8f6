package session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error
	// Validate возвращает владельца неистекшей сессии или ErrInvalid.
	Validate(ctx context.Context, tokenHash string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
