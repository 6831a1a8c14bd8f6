package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
)

var (
	loginName string
	noSync    bool
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в систему",
	Long: `Аутентификация в облаке сохранений.

После входа токен сохраняется локально, а накопленная офлайн очередь
отправляется на сервер.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		login := loginName
		if login == "" {
			if login, err = readLine("Логин: "); err != nil {
				return err
			}
		}

		password, err := readPassword("Пароль: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Login(ctx, login, password); err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}
		color.Green("✅ Вход выполнен: %s", app.UserLogin())

		if noSync {
			return nil
		}

		session, err := app.Sync().StartSync(ctx, false)
		switch {
		case err != nil:
			color.Yellow("⚠️  Синхронизация не выполнена: %v", err)
			fmt.Println("Изменения останутся в очереди до появления связи")
		case session.FailedChanges > 0:
			color.Yellow("⚠️  Синхронизация завершена с ошибками (%d)", session.FailedChanges)
		default:
			fmt.Printf("✓ Отправлено изменений: %d\n", session.SuccessfulChanges)
		}

		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&loginName, "login", "l", "", "логин")
	LoginCmd.Flags().BoolVar(&noSync, "no-sync", false, "не синхронизировать после входа")
}
