package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

// fakeProber сдвигает часы на latency при каждом Ping.
type fakeProber struct {
	clock   *fakeClock
	latency time.Duration
	err     error
	calls   int
}

func (p *fakeProber) Ping(_ context.Context) error {
	p.calls++
	p.clock.t = p.clock.t.Add(p.latency)
	return p.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestClassify(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    Quality
	}{
		{0, QualityExcellent},
		{199 * time.Millisecond, QualityExcellent},
		{200 * time.Millisecond, QualityGood},
		{499 * time.Millisecond, QualityGood},
		{500 * time.Millisecond, QualityFair},
		{999 * time.Millisecond, QualityFair},
		{time.Second, QualityPoor},
		{5 * time.Second, QualityPoor},
	}

	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.latency))
		})
	}
}

func TestMonitor_Probe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	prober := &fakeProber{clock: clock, latency: 100 * time.Millisecond}
	m := NewMonitor(prober, MonitorConfig{}, slog.Default(), WithClock(clock.Now))

	assert.Equal(t, QualityExcellent, m.Probe(context.Background()))
	assert.Equal(t, QualityExcellent, m.Quality())

	prober.latency = 700 * time.Millisecond
	assert.Equal(t, QualityFair, m.Probe(context.Background()))
}

func TestMonitor_ProbeFailureIsPoor(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	prober := &fakeProber{clock: clock, err: errors.New("connection refused")}
	m := NewMonitor(prober, MonitorConfig{}, slog.Default(), WithClock(clock.Now))

	assert.Equal(t, QualityPoor, m.Probe(context.Background()))

	noProber := NewMonitor(nil, MonitorConfig{}, slog.Default())
	assert.Equal(t, QualityPoor, noProber.Probe(context.Background()))
}

func TestMonitor_NotifiesOnlyOnChange(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	prober := &fakeProber{clock: clock, latency: 50 * time.Millisecond}
	m := NewMonitor(prober, MonitorConfig{}, slog.Default(), WithClock(clock.Now))

	var got []Quality
	unsubscribe := m.Subscribe(func(q Quality) { got = append(got, q) })

	ctx := context.Background()
	m.Probe(ctx)
	m.Probe(ctx)
	m.Probe(ctx)
	prober.latency = 300 * time.Millisecond
	m.Probe(ctx)
	m.Probe(ctx)

	assert.Equal(t, []Quality{QualityExcellent, QualityGood}, got)

	unsubscribe()
	prober.latency = 2 * time.Second
	m.Probe(ctx)
	assert.Len(t, got, 2)
	assert.Equal(t, QualityPoor, m.Quality())
}

func TestMonitor_FeedsConnectivity(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	prober := &fakeProber{clock: clock, latency: 50 * time.Millisecond}
	conn := NewConnectivity(true)
	m := NewMonitor(prober, MonitorConfig{}, slog.Default(), WithClock(clock.Now), WithReachability(conn.Confirm))

	m.Probe(context.Background())
	assert.True(t, conn.Connected())

	prober.err = errors.New("connection refused")
	m.Probe(context.Background())
	assert.Equal(t, State{Online: true}, conn.State())

	prober.err = nil
	m.Probe(context.Background())
	assert.True(t, conn.Connected())

	// без сигнала сети успешный замер связь не подтверждает
	conn.SetOnline(false)
	m.Probe(context.Background())
	assert.False(t, conn.Connected())
}

func TestEstimatePerItem(t *testing.T) {
	assert.Less(t, EstimatePerItem(QualityExcellent), EstimatePerItem(QualityGood))
	assert.Less(t, EstimatePerItem(QualityGood), EstimatePerItem(QualityFair))
	assert.Less(t, EstimatePerItem(QualityFair), EstimatePerItem(QualityPoor))
}
