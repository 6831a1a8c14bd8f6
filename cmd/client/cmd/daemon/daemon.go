package daemon

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
	"savesync/internal/app/client/saves"
)

var stateFile string

var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Фоновая синхронизация",
	Long: `Запускает мониторинг сети, периодическую синхронизацию и автосохранение.

С флагом --state-file периодическое автосохранение берет состояние игры
из файла. При остановке (Ctrl+C, SIGTERM) выполняется аварийное сохранение.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if stateFile != "" {
			app.AutoSave().SetGameState(fileState(stateFile))
		}

		color.Green("Синхронизация запущена. Ctrl+C для остановки")
		if err := app.Run(cmd.Context()); err != nil {
			return err
		}

		for _, ev := range app.AutoSave().History() {
			mark := "✓"
			if !ev.Success {
				mark = "✗"
			}
			fmt.Printf("%s %s %s %s\n", mark, ev.Timestamp.Format("15:04:05"), ev.Trigger, ev.Error)
		}
		return nil
	},
}

// fileState отдает содержимое файла, только если он изменился с прошлого чтения.
func fileState(path string) func() (saves.Snapshot, bool) {
	var seen time.Time
	return func() (saves.Snapshot, bool) {
		fi, err := os.Stat(path)
		if err != nil || !fi.ModTime().After(seen) {
			return saves.Snapshot{}, false
		}

		snap, err := types.ReadSnapshot(path)
		if err != nil {
			return saves.Snapshot{}, false
		}
		seen = fi.ModTime()
		return snap, true
	}
}

func init() {
	DaemonCmd.Flags().StringVar(&stateFile, "state-file", "", "файл, из которого берется состояние игры")
}
