package save

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
)

var putFile string

var PutCmd = &cobra.Command{
	Use:   "put",
	Short: "Записать слот",
	Long: `Записывает состояние игры в слот.

Состояние читается из файла (--file) или из stdin. Если в JSON есть поля
version и lastSaved, они используются как метаданные слота.`,
	Example: `  savesync save put --slot 1 --file state.json
  cat state.json | savesync save put -s 2 -p high`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if slot < 0 {
			return fmt.Errorf("номер слота не может быть отрицательным")
		}

		prio, err := parsePriority()
		if err != nil {
			return err
		}

		snap, err := types.ReadSnapshot(putFile)
		if err != nil {
			return err
		}

		rec, err := app.SaveSlot(cmd.Context(), slot, snap, prio)
		if err != nil {
			return fmt.Errorf("ошибка записи слота: %w", err)
		}

		color.Green("✅ Слот %d сохранен (%d байт)", slot, len(snap.Data))
		fmt.Printf("Изменение %s в очереди, приоритет %s\n", rec.ID, rec.Priority)
		return nil
	},
}

func init() {
	PutCmd.Flags().StringVarP(&putFile, "file", "f", "", "файл с состоянием игры (по умолчанию stdin)")
}
