package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"savesync/internal/domain/save"
)

type SaveRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewSaveRepository(db *Storage, log *slog.Logger) *SaveRepository {
	return &SaveRepository{
		db:  db,
		log: log,
	}
}

// Upsert заменяет слот целиком: последняя запись побеждает.
func (r *SaveRepository) Upsert(ctx context.Context, rec save.Record) (save.Record, error) {
	err := r.db.Pool().QueryRow(ctx, `
		INSERT INTO saves (user_id, slot_id, data, checksum, version, last_saved)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, slot_id) DO UPDATE SET
			data       = EXCLUDED.data,
			checksum   = EXCLUDED.checksum,
			version    = EXCLUDED.version,
			last_saved = EXCLUDED.last_saved,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		rec.UserID, rec.SlotID, rec.Data, rec.Checksum, rec.Version, rec.LastSaved,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return save.Record{}, fmt.Errorf("upsert save: %w", err)
	}
	return rec, nil
}

func (r *SaveRepository) Get(ctx context.Context, userID, slotID int) (save.Record, error) {
	rec := save.Record{UserID: userID}
	err := r.db.Pool().QueryRow(ctx, `
		SELECT id, slot_id, data, checksum, version, last_saved, created_at, updated_at
		FROM saves
		WHERE user_id = $1 AND slot_id = $2`,
		userID, slotID,
	).Scan(&rec.ID, &rec.SlotID, &rec.Data, &rec.Checksum, &rec.Version, &rec.LastSaved, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return save.Record{}, save.ErrNotFound
		}
		return save.Record{}, fmt.Errorf("select save: %w", err)
	}
	return rec, nil
}

func (r *SaveRepository) Delete(ctx context.Context, userID, slotID int) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM saves WHERE user_id = $1 AND slot_id = $2`, userID, slotID)
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return save.ErrNotFound
	}
	return nil
}

func (r *SaveRepository) List(ctx context.Context, userID int) ([]save.Record, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, slot_id, checksum, version, last_saved, created_at, updated_at
		FROM saves
		WHERE user_id = $1
		ORDER BY slot_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []save.Record
	for rows.Next() {
		rec := save.Record{UserID: userID}
		if err := rows.Scan(&rec.ID, &rec.SlotID, &rec.Checksum, &rec.Version, &rec.LastSaved, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saves: %w", err)
	}

	r.log.Debug("saves listed", slog.Int("user_id", userID), slog.Int("count", len(out)))
	return out, nil
}
