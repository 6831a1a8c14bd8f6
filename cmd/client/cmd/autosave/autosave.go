package autosave

import "github.com/spf13/cobra"

// AutoSaveCmd - родительская команда автосохранения
var AutoSaveCmd = &cobra.Command{
	Use:   "autosave",
	Short: "Автосохранение",
	Long: `Ручной запуск автосохранения по триггеру, восстановление и статус.

Автосохранение пишет основной слот, резервную копию и зеркало в облаке.
При повреждении основного слота данные восстанавливаются из резервного.`,
}
