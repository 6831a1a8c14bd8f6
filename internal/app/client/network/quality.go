package network

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
)

type Quality string

const (
	QualityPoor      Quality = "poor"
	QualityFair      Quality = "fair"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

const (
	DefaultProbeInterval = 30 * time.Second
	DefaultProbeTimeout  = 5 * time.Second
)

// Classify переводит задержку в уровень качества.
func Classify(latency time.Duration) Quality {
	switch {
	case latency < 200*time.Millisecond:
		return QualityExcellent
	case latency < 500*time.Millisecond:
		return QualityGood
	case latency < time.Second:
		return QualityFair
	default:
		return QualityPoor
	}
}

// EstimatePerItem - ожидаемое время обработки одного изменения при данном качестве.
func EstimatePerItem(q Quality) time.Duration {
	switch q {
	case QualityExcellent:
		return 200 * time.Millisecond
	case QualityGood:
		return 500 * time.Millisecond
	case QualityFair:
		return time.Second
	default:
		return 3 * time.Second
	}
}

// Prober выполняет легкий запрос доступности (HEAD).
type Prober interface {
	Ping(ctx context.Context) error
}

type MonitorConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultProbeInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultProbeTimeout
	}
	return c
}

// Monitor периодически замеряет задержку и уведомляет подписчиков о смене уровня.
type Monitor struct {
	prober Prober
	cfg    MonitorConfig
	log    *slog.Logger
	now    func() time.Time
	reach  func(bool)

	mu        gosync.RWMutex
	quality   Quality
	listeners map[int]func(Quality)
	nextID    int
}

type MonitorOption func(*Monitor)

// WithReachability передает результат каждого замера, например в Connectivity.Confirm.
func WithReachability(fn func(reachable bool)) MonitorOption {
	return func(m *Monitor) { m.reach = fn }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

func NewMonitor(prober Prober, cfg MonitorConfig, log *slog.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		prober:    prober,
		cfg:       cfg.withDefaults(),
		log:       log.With(slog.String("component", "network_monitor")),
		now:       time.Now,
		quality:   QualityPoor,
		listeners: make(map[int]func(Quality)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Probe выполняет один замер. Ошибка запроса дает QualityPoor; наружу она уходит
// только как признак недоступности для WithReachability.
func (m *Monitor) Probe(ctx context.Context) Quality {
	if m.prober == nil {
		m.set(QualityPoor)
		return QualityPoor
	}

	q := QualityPoor
	pctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	start := m.now()
	err := m.prober.Ping(pctx)
	latency := m.now().Sub(start)
	cancel()

	if err != nil {
		m.log.Debug("Проверка сети не удалась", "error", err)
	} else {
		q = Classify(latency)
	}

	m.set(q)
	if m.reach != nil && ctx.Err() == nil {
		m.reach(err == nil)
	}

	return q
}

func (m *Monitor) Quality() Quality {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quality
}

// Subscribe регистрирует слушателя смены уровня. Возвращает функцию отписки.
func (m *Monitor) Subscribe(fn func(Quality)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Start крутит замеры до отмены ctx.
func (m *Monitor) Start(ctx context.Context) {
	m.Probe(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Мониторинг сети остановлен")
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

func (m *Monitor) set(q Quality) {
	m.mu.Lock()
	if m.quality == q {
		m.mu.Unlock()
		return
	}
	prev := m.quality
	m.quality = q
	listeners := make([]func(Quality), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.log.Info("Качество сети изменилось", "from", prev, "to", q)

	for _, fn := range listeners {
		fn(q)
	}
}
