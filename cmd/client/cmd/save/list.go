package save

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
	"savesync/internal/app/client/saves"
	"savesync/internal/app/client/transport"
)

var remote bool

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список слотов",
	Long: `Показывает локальные слоты. С флагом --remote сравнивает их с сервером.

Резервные копии автосохранений хранятся в отрицательных слотах.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if remote {
			states, err := app.RemoteSlots(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка получения слотов с сервера: %w", err)
			}
			printRemote(states)
			return nil
		}

		infos, err := app.ListSlots(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения слотов: %w", err)
		}
		printLocal(infos)
		return nil
	},
}

func printLocal(infos []saves.SlotInfo) {
	if len(infos) == 0 {
		fmt.Println("Слотов нет")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "СЛОТ\tВЕРСИЯ\tСОХРАНЕН\tРАЗМЕР\tКОНТРОЛЬНАЯ СУММА")
	for _, s := range infos {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\n", s.SlotID, s.Version, formatTime(s.LastSaved), s.Size, short(s.Checksum))
	}
	_ = w.Flush()
}

func printRemote(states []transport.SlotState) {
	if len(states) == 0 {
		fmt.Println("Слотов нет ни локально, ни на сервере")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "СЛОТ\tЛОКАЛЬНО\tНА СЕРВЕРЕ\tСОСТОЯНИЕ")
	for _, s := range states {
		local, srv := "-", "-"
		if s.LocalExists {
			local = formatTime(s.LocalLastSaved)
		}
		if s.RemoteExists {
			srv = formatTime(s.RemoteLastSaved)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.SlotID, local, srv, describe(s))
	}
	_ = w.Flush()
}

func describe(s transport.SlotState) string {
	switch {
	case !s.RemoteExists:
		return color.YellowString("только локально")
	case !s.LocalExists:
		return color.CyanString("только на сервере")
	}

	diff := s.LocalLastSaved.Sub(s.RemoteLastSaved)
	switch {
	case diff.Abs() < time.Second:
		return color.GreenString("синхронизирован")
	case diff > 0:
		return color.YellowString("локальный новее")
	default:
		return color.CyanString("серверный новее")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func short(sum string) string {
	if len(sum) > 15 {
		return sum[:15] + "…"
	}
	return sum
}

func init() {
	ListCmd.Flags().BoolVarP(&remote, "remote", "r", false, "сравнить с сервером")
}
