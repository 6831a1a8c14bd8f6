package autosave

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
	"savesync/internal/app/client/autosave"
)

var (
	triggerName string
	stateFile   string
	force       bool
)

var TriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Выполнить автосохранение",
	Long: `Сохраняет состояние игры в слот автосохранения от имени триггера.

Триггеры: ` + triggerList() + `.
Флаг --force пропускает проверку минимального интервала.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		trigger, err := autosave.ParseTrigger(triggerName)
		if err != nil {
			return err
		}

		snap, err := types.ReadSnapshot(stateFile)
		if err != nil {
			return err
		}

		ev := app.AutoSave().TriggerAutoSave(cmd.Context(), trigger, &snap, force)
		if !ev.Success {
			return fmt.Errorf("автосохранение не выполнено: %s", ev.Error)
		}

		color.Green("✅ Автосохранение (%s): %d байт", ev.Trigger, ev.Size)
		return nil
	},
}

func triggerList() string {
	names := make([]string, len(autosave.AllTriggers))
	for i, t := range autosave.AllTriggers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func init() {
	TriggerCmd.Flags().StringVarP(&triggerName, "trigger", "t", string(autosave.TriggerManual), "триггер автосохранения")
	TriggerCmd.Flags().StringVarP(&stateFile, "file", "f", "", "файл с состоянием игры (по умолчанию stdin)")
	TriggerCmd.Flags().BoolVar(&force, "force", false, "игнорировать минимальный интервал")
}
