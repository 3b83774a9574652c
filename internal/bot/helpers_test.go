package bot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/settings"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

// seqRand replays values in order and then repeats the last one.
type seqRand struct {
	mu     sync.Mutex
	values []float64
	i      int
}

func newSeqRand(values ...float64) *seqRand { return &seqRand{values: values} }

func (r *seqRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[r.i]
	if r.i < len(r.values)-1 {
		r.i++
	}
	return v
}

type published struct {
	topic   events.Topic
	payload any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(topic events.Topic, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, payload})
	return p.err
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

type recordingMetrics struct {
	mu         sync.Mutex
	placed     map[string]int
	rejected   map[string]int
	takeProfit int
	open       int
	signals    []bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{placed: map[string]int{}, rejected: map[string]int{}}
}

func (m *recordingMetrics) RecordTradePlaced(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed[source]++
}

func (m *recordingMetrics) RecordTradeRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) RecordTakeProfit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.takeProfit++
}

func (m *recordingMetrics) SetOpenOrders(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = n
}

func (m *recordingMetrics) RecordSignal(actionable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, actionable)
}

func newTestTradingService(t *testing.T, pub Publisher, rec TradeRecorder, limit int) (*TradingService, *settings.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := settings.NewStore(settings.Settings{TradeAmount: 1, StopLoss: 5, RiskReward: 3}, logger)
	require.NoError(t, err)

	svc := NewTradingService(TradingServiceConfig{
		Logger:         logger,
		Settings:       store,
		Simulator:      trade.NewSimulator(newSeqRand(0)),
		Publisher:      pub,
		Metrics:        rec,
		Defaults:       trade.DefaultParameters(),
		OpenOrderLimit: limit,
	})
	return svc, store
}
