package sync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	gosync "sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"savesync/cmd/client/cmd/types"
	"savesync/internal/app/client"
	"savesync/internal/app/client/conflict"
	syncer "savesync/internal/app/client/sync"
)

var (
	forceSync   bool
	syncStatus  bool
	slotsSync   bool
	retryFailed bool
	interactive bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Управление синхронизацией",
	Long: `Синхронизация слотов между клиентом и сервером.

Без флагов отправляет очередь изменений. --slots сверяет все слоты с сервером
и разрешает конфликты по политике; --status показывает состояние очереди.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}

		if interactive {
			app.Sync().SetPrompter(terminalPrompter)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Синхронизация сохранений ===")

	if !app.IsAuthenticated() {
		return fmt.Errorf("требуется аутентификация. Выполните: savesync auth login")
	}

	fmt.Println("Проверка соединения с сервером...")
	if !app.Sync().CheckConnectivity(ctx) {
		color.Yellow("⚠️  Сервер недоступен, изменения остаются в очереди")
		return nil
	}

	progress := newProgressObserver()
	unsubscribe := app.Sync().Subscribe(progress)
	defer unsubscribe()

	start := time.Now()

	var (
		session *syncer.Session
		err     error
	)
	switch {
	case retryFailed:
		var n int
		n, session, err = app.Sync().RetryAbandoned(ctx)
		if err == nil {
			fmt.Printf("Возвращено в очередь: %d\n", n)
		}
	case slotsSync:
		session, err = app.Sync().SyncSlots(ctx, forceSync)
	default:
		session, err = app.Sync().StartSync(ctx, forceSync)
	}
	progress.finish()

	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	printSession(session, time.Since(start))
	return nil
}

func printSession(s *syncer.Session, took time.Duration) {
	fmt.Println()
	if s == nil {
		fmt.Println("Нечего синхронизировать")
		return
	}

	switch {
	case s.Cancelled():
		color.Yellow("⚠️  Синхронизация прервана")
	case s.FailedChanges > 0:
		color.Yellow("⚠️  Синхронизация завершена с ошибками")
	default:
		color.Green("✅ Синхронизация завершена!")
	}

	fmt.Printf("Время выполнения: %v\n", took.Round(time.Millisecond))
	fmt.Printf("Качество сети: %s\n", s.NetworkQuality)
	fmt.Printf("Всего изменений: %d, успешно: %d, с ошибками: %d\n",
		s.TotalChanges, s.SuccessfulChanges, s.FailedChanges)

	var shown int
	for _, op := range s.Operations {
		for _, e := range op.Errors {
			if shown == 3 {
				fmt.Println("  ...")
				break
			}
			fmt.Printf("  • %s: %s\n", op.Type, e)
			shown++
		}
	}

	if len(s.Conflicts) == 0 {
		return
	}
	fmt.Printf("Конфликтов: %d\n", len(s.Conflicts))
	for _, c := range s.Conflicts {
		fmt.Printf("  • слот %d: локально %s, на сервере %s -> %s (%s)\n",
			c.SlotID,
			c.LocalLastSaved.Local().Format("2006-01-02 15:04:05"),
			c.RemoteLastSaved.Local().Format("2006-01-02 15:04:05"),
			c.Resolution, c.ResolvedBy)
	}
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")

	connected := app.Sync().CheckConnectivity(ctx)
	st := app.Sync().Status()

	fmt.Println("📊 Очередь:")
	fmt.Printf("  Ожидают отправки: %d\n", st.PendingChanges)
	fmt.Printf("  Исчерпали попытки: %d\n", st.AbandonedChanges)
	if st.AbandonedChanges > 0 {
		fmt.Println("  Вернуть их в очередь: savesync sync --retry-failed")
	}

	fmt.Printf("\n⏰ Временные метки:\n")
	fmt.Printf("  Последняя синхронизация: %s\n", formatTime(st.LastSyncTime))
	fmt.Printf("  Следующая: %s\n", formatTime(st.NextSyncTime))
	fmt.Printf("  Оценка длительности: %v\n", st.EstimatedDuration)

	if stats, err := app.StoreStats(ctx); err == nil {
		fmt.Printf("\n💾 Локальное хранилище:\n")
		fmt.Printf("  Записей: %d, объем: %d байт\n", stats.ItemCount, stats.TotalSize)
		for cat, n := range stats.Categories {
			fmt.Printf("  %s: %d\n", cat, n)
		}
	}

	fmt.Printf("\n🌐 Соединение с сервером: ")
	if connected {
		fmt.Printf("✅ OK (%s)\n", st.NetworkQuality)
	} else {
		fmt.Printf("❌ Недоступен\n")
	}

	fmt.Printf("🔐 Аутентификация: ")
	if app.IsAuthenticated() {
		fmt.Printf("✅ %s\n", app.UserLogin())
	} else {
		fmt.Printf("❌ Требуется вход\n")
	}

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "никогда"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// progressObserver рисует общий прогресс по всем операциям сессии.
type progressObserver struct {
	syncer.NopObserver

	mu        gosync.Mutex
	bar       *pb.ProgressBar
	processed map[string]int
}

func newProgressObserver() *progressObserver {
	return &progressObserver{processed: make(map[string]int)}
}

func (p *progressObserver) OnSyncStart(s *syncer.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.TotalChanges == 0 {
		return
	}
	p.bar = pb.Full.New(s.TotalChanges).SetWriter(os.Stdout).Start()
}

func (p *progressObserver) OnSyncProgress(op syncer.Operation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	p.processed[op.ID] = op.ProcessedItems

	var total int
	for _, n := range p.processed {
		total += n
	}
	p.bar.SetCurrent(int64(total))
}

func (p *progressObserver) OnError(msg string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		color.Red("✗ %s: %v", msg, err)
	}
}

func (p *progressObserver) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

var stdin = bufio.NewReader(os.Stdin)

// terminalPrompter спрашивает, какую копию слота оставить.
func terminalPrompter(ctx context.Context, c conflict.Conflict) (conflict.Decision, error) {
	fmt.Println()
	color.Yellow("Конфликт в слоте %d", c.SlotID)
	fmt.Printf("  [l] локальная:  версия %d, %s\n", c.Local.Version, c.Local.LastSaved.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  [s] серверная:  версия %d, %s\n", c.Remote.Version, c.Remote.LastSaved.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  [k] пропустить\n")

	for {
		if err := ctx.Err(); err != nil {
			return conflict.DecisionSkip, err
		}

		fmt.Print("Выбор [l/s/k]: ")
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return conflict.DecisionSkip, errors.New("нет ответа пользователя")
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "l", "local":
			return conflict.DecisionLocal, nil
		case "s", "server":
			return conflict.DecisionServer, nil
		case "k", "skip":
			return conflict.DecisionSkip, nil
		}
	}
}

func init() {
	SyncCmd.Flags().BoolVarP(&forceSync, "force", "f", false, "синхронизировать даже без изменений в очереди")
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVar(&slotsSync, "slots", false, "сверить все слоты с сервером")
	SyncCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "вернуть в очередь изменения, исчерпавшие попытки")
	SyncCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "спрашивать при конфликтах (политика prompt)")
}
