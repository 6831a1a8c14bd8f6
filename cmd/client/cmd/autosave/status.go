package autosave

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
	"savesync/internal/app/client/autosave"
	"savesync/internal/app/client/saves"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние автосохранения",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		cfg := app.Config().AutoSave

		fmt.Println("=== Автосохранение ===")
		fmt.Printf("Включено: %v\n", cfg.Enabled)
		fmt.Printf("Слот: %d (резерв %d)\n", cfg.Slot, autosave.BackupSlot(cfg.Slot))
		fmt.Printf("Интервал: %v, минимальный промежуток: %v\n", cfg.Interval, cfg.MinGap)
		fmt.Printf("Резервная копия: %v, зеркало в облаке: %v\n", cfg.Backup, cfg.CloudMirror)
		if len(cfg.Triggers) > 0 {
			fmt.Printf("Триггеры: %s\n", strings.Join(cfg.Triggers, ", "))
		}

		infos, err := app.ListSlots(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения слотов: %w", err)
		}

		printSlot("Основной слот", infos, cfg.Slot)
		printSlot("Резервный слот", infos, autosave.BackupSlot(cfg.Slot))

		return nil
	},
}

func printSlot(title string, infos []saves.SlotInfo, slot int) {
	for _, s := range infos {
		if s.SlotID == slot {
			fmt.Printf("%s: версия %d, сохранен %s, %d байт\n",
				title, s.Version, s.LastSaved.Local().Format("2006-01-02 15:04:05"), s.Size)
			return
		}
	}
	fmt.Printf("%s: пусто\n", title)
}
