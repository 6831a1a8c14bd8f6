package save

import (
	"fmt"

	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Удалить слот",
	Long:  `Удаляет слот локально. Удаление на сервере выполнится при синхронизации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		prio, err := parsePriority()
		if err != nil {
			return err
		}

		if _, err := app.DeleteSlot(cmd.Context(), slot, prio); err != nil {
			return fmt.Errorf("ошибка удаления слота %d: %w", slot, err)
		}

		fmt.Printf("✓ Слот %d удален\n", slot)
		return nil
	},
}
