package save

import "context"

type Repository interface {
	Upsert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, userID, slotID int) (Record, error)
	Delete(ctx context.Context, userID, slotID int) error
	List(ctx context.Context, userID int) ([]Record, error)
}
