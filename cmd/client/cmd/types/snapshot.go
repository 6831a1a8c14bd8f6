package types

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"savesync/internal/app/client/saves"
)

// ReadSnapshot читает состояние игры из файла или stdin ("-" или пустая строка).
// Поля version и lastSaved (мс с эпохи) берутся из самого JSON, если они там есть.
func ReadSnapshot(path string) (saves.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return saves.Snapshot{}, fmt.Errorf("ошибка чтения состояния: %w", err)
	}
	if len(data) == 0 {
		return saves.Snapshot{}, fmt.Errorf("пустое состояние игры")
	}

	snap := saves.Snapshot{Data: data}

	var meta struct {
		Version   int   `json:"version"`
		LastSaved int64 `json:"lastSaved"`
	}
	if json.Unmarshal(data, &meta) == nil {
		snap.Version = meta.Version
		if meta.LastSaved > 0 {
			snap.LastSaved = time.UnixMilli(meta.LastSaved)
		}
	}
	if snap.LastSaved.IsZero() {
		snap.LastSaved = time.Now()
	}

	return snap, nil
}
