package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"savesync/cmd/client/cmd/types"
	"savesync/internal/app/client"
	"savesync/internal/app/client/config"
	"savesync/internal/utils/logger"
)

var (
	cfgFile   string
	debug     bool
	serverURL string
	backend   string

	app *client.App
)

var rootCmd = &cobra.Command{
	Use:   "savesync",
	Short: "savesync - офлайн-синхронизация игровых сохранений",
	Long: `savesync хранит слоты сохранений локально и синхронизирует их с облаком.

Все изменения сначала пишутся на диск и попадают в очередь. Очередь
отправляется, когда есть связь; конфликты разрешаются по политике.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if app != nil {
		app.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if backend != "" {
		cfg.RemoteBackend = backend
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log := logger.New(cfg.Env, logger.WithLevel(level)).With(slog.String("cmd", cmd.Name()))

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".savesync"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Конфиг не найден, используем окружение и значения по умолчанию
	}

	return config.MustLoad(), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера сохранений")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "облачный бэкенд: http, minio, memory")
}
