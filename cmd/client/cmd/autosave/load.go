package autosave

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
)

var loadOut string

var LoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Загрузить автосохранение",
	Long: `Читает слот автосохранения. Если он поврежден, данные берутся из
резервной копии, а основной слот перезаписывается ею.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		snap, err := app.AutoSave().LoadAutoSave(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка загрузки автосохранения: %w", err)
		}

		if loadOut != "" {
			if err := os.WriteFile(loadOut, snap.Data, 0o600); err != nil {
				return fmt.Errorf("ошибка записи файла: %w", err)
			}
			fmt.Printf("✓ Автосохранение от %s записано в %s\n", snap.LastSaved.Format("2006-01-02 15:04:05"), loadOut)
			return nil
		}

		_, err = os.Stdout.Write(snap.Data)
		fmt.Println()
		return err
	},
}

func init() {
	LoadCmd.Flags().StringVarP(&loadOut, "out", "o", "", "записать содержимое в файл")
}
