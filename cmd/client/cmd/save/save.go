package save

import (
	"github.com/spf13/cobra"

	"savesync/internal/app/client/changes"
)

// SaveCmd - родительская команда для работы со слотами сохранений
var SaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Управление слотами сохранений",
	Long: `Запись, чтение, просмотр и удаление слотов.

Все операции сначала выполняются локально; изменения попадают в очередь
и уходят на сервер при следующей синхронизации.`,
}

var (
	slot     int
	priority string
)

func parsePriority() (changes.Priority, error) {
	return changes.ParsePriority(priority)
}

func init() {
	SaveCmd.PersistentFlags().IntVarP(&slot, "slot", "s", 0, "номер слота")
	SaveCmd.PersistentFlags().StringVarP(&priority, "priority", "p", "medium", "приоритет изменения: low, medium, high, critical")
}
