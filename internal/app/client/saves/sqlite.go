package saves

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"savesync/internal/utils/checksum"
)

type SQLiteManager struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteManager(path string) (*SQLiteManager, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	m := &SQLiteManager{db: db, now: time.Now}

	if err := m.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return m, nil
}

func (m *SQLiteManager) initTables() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS save_slots (
			slot_id INTEGER PRIMARY KEY,
			data BLOB NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			last_saved INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_save_slots_last_saved ON save_slots(last_saved);
	`)

	return err
}

func (m *SQLiteManager) Save(ctx context.Context, slot int, snap Snapshot) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO save_slots (slot_id, data, version, last_saved, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot_id) DO UPDATE SET
			data = excluded.data,
			version = excluded.version,
			last_saved = excluded.last_saved,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`, slot, snap.Data, snap.Version, snap.LastSaved.UnixMilli(), checksum.Sum(snap.Data), m.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("ошибка сохранения слота %d: %w", slot, err)
	}

	return nil
}

func (m *SQLiteManager) Load(ctx context.Context, slot int) (*Snapshot, error) {
	var (
		snap      Snapshot
		lastSaved int64
	)

	err := m.db.QueryRowContext(ctx, `
		SELECT data, version, last_saved FROM save_slots WHERE slot_id = ?
	`, slot).Scan(&snap.Data, &snap.Version, &lastSaved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки слота %d: %w", slot, err)
	}

	snap.LastSaved = time.UnixMilli(lastSaved)

	return &snap, nil
}

func (m *SQLiteManager) Delete(ctx context.Context, slot int) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM save_slots WHERE slot_id = ?`, slot)
	if err != nil {
		return fmt.Errorf("ошибка удаления слота %d: %w", slot, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка удаления слота %d: %w", slot, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (m *SQLiteManager) Exists(ctx context.Context, slot int) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM save_slots WHERE slot_id = ?)`, slot).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки слота %d: %w", slot, err)
	}

	return exists, nil
}

func (m *SQLiteManager) List(ctx context.Context) ([]SlotInfo, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT slot_id, version, last_saved, length(data), checksum, updated_at
		FROM save_slots
		ORDER BY slot_id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка слотов: %w", err)
	}
	defer rows.Close()

	var infos []SlotInfo
	for rows.Next() {
		var (
			info                 SlotInfo
			lastSaved, updatedAt int64
		)
		if err := rows.Scan(&info.SlotID, &info.Version, &lastSaved, &info.Size, &info.Checksum, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения слота: %w", err)
		}
		info.LastSaved = time.UnixMilli(lastSaved)
		info.UpdatedAt = time.UnixMilli(updatedAt)
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

func (m *SQLiteManager) Close() error {
	return m.db.Close()
}
