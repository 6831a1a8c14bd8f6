package save

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
)

var (
	outFile  string
	showMeta bool
)

var GetCmd = &cobra.Command{
	Use:   "get",
	Short: "Прочитать слот",
	Long:  `Выводит содержимое слота в stdout или в файл.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		snap, err := app.LoadSlot(cmd.Context(), slot)
		if err != nil {
			return fmt.Errorf("ошибка чтения слота %d: %w", slot, err)
		}

		if showMeta {
			fmt.Fprintf(os.Stderr, "Слот %d: версия %d, сохранен %s, %d байт\n",
				slot, snap.Version, snap.LastSaved.Format("2006-01-02 15:04:05"), len(snap.Data))
		}

		if outFile != "" {
			if err := os.WriteFile(outFile, snap.Data, 0o600); err != nil {
				return fmt.Errorf("ошибка записи файла: %w", err)
			}
			fmt.Printf("✓ Слот %d записан в %s\n", slot, outFile)
			return nil
		}

		_, err = os.Stdout.Write(snap.Data)
		fmt.Println()
		return err
	},
}

func init() {
	GetCmd.Flags().StringVarP(&outFile, "out", "o", "", "записать содержимое в файл")
	GetCmd.Flags().BoolVarP(&showMeta, "meta", "m", false, "показать метаданные слота")
}
