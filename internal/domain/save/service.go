package save

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"savesync/internal/utils/checksum"
)

type Servicer interface {
	Upsert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, userID, slotID int) (Record, error)
	Delete(ctx context.Context, userID, slotID int) error
	List(ctx context.Context, userID int) ([]Record, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "save_service")),
	}
}

// Upsert проверяет контрольную сумму и заменяет содержимое слота.
// Запись с несовпадающей суммой не сохраняется.
func (s *Service) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.SlotID < 0 {
		return Record{}, ErrInvalidSlot
	}

	if err := checksum.Verify(rec.Data, rec.Checksum); err != nil {
		s.log.Warn("rejecting save",
			slog.Int("user_id", rec.UserID),
			slog.Int("slot", rec.SlotID),
			slog.String("error", err.Error()),
		)
		return Record{}, fmt.Errorf("%w: %v", ErrChecksumMismatch, err)
	}

	saved, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("upsert save: %w", err)
	}

	s.log.Debug("save stored", slog.Int("user_id", rec.UserID), slog.Int("slot", rec.SlotID), slog.Int("id", saved.ID))
	return saved, nil
}

func (s *Service) Get(ctx context.Context, userID, slotID int) (Record, error) {
	if slotID < 0 {
		return Record{}, ErrInvalidSlot
	}

	rec, err := s.repo.Get(ctx, userID, slotID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("get save: %w", err)
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, userID, slotID int) error {
	if slotID < 0 {
		return ErrInvalidSlot
	}

	if err := s.repo.Delete(ctx, userID, slotID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete save: %w", err)
	}
	return nil
}

// List возвращает метаданные всех слотов пользователя без содержимого.
func (s *Service) List(ctx context.Context, userID int) ([]Record, error) {
	recs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}

	for i := range recs {
		recs[i].Data = nil
	}
	return recs, nil
}
