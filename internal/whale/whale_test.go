package whale

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(topic events.Topic, payload any) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

func walletN(n int) Event {
	return Event{Wallet: fmt.Sprintf("w%d", n), Amount: float64(n), Type: SideBuy}
}

func TestBuffer_EvictsOldest(t *testing.T) {
	b := NewBuffer(DefaultCapacity)
	for i := 0; i < 51; i++ {
		b.Append(walletN(i))
	}

	snap := b.Snapshot()
	require.Len(t, snap, 50)
	assert.Equal(t, "w1", snap[0].Wallet)
	assert.Equal(t, "w50", snap[49].Wallet)
	assert.Equal(t, 50, b.Len())
	assert.Equal(t, 50, b.Cap())
}

func TestBuffer_PartialFill(t *testing.T) {
	b := NewBuffer(5)
	b.Append(walletN(1))
	b.Append(walletN(2))

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "w1", snap[0].Wallet)
	assert.Equal(t, "w2", snap[1].Wallet)
}

func TestBuffer_SnapshotIsACopy(t *testing.T) {
	b := NewBuffer(3)
	b.Append(walletN(1))

	snap := b.Snapshot()
	snap[0].Wallet = "mutated"

	assert.Equal(t, "w1", b.Snapshot()[0].Wallet)
}

func TestBuffer_NeverExceedsCapacityUnderConcurrency(t *testing.T) {
	b := NewBuffer(DefaultCapacity)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Append(walletN(g*1000 + i))
				assert.LessOrEqual(t, len(b.Snapshot()), DefaultCapacity)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, DefaultCapacity, b.Len())
}

func TestGenerator_TickPublishesAndStores(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", events.TopicWhaleActivity, mock.AnythingOfType("whale.Event")).Return(nil).Once()

	buf := NewBuffer(DefaultCapacity)
	g := NewGenerator(Config{Probability: 1, MinAmount: 10, MaxAmount: 200}, buf, pub, trade.NewRandomSource(3), zaptest.NewLogger(t))
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	e, ok := g.Tick(context.Background())
	require.True(t, ok)

	assert.GreaterOrEqual(t, e.Amount, 10.0)
	assert.LessOrEqual(t, e.Amount, 200.0)
	assert.Equal(t, e.Amount, math.Round(e.Amount*100)/100)
	assert.Contains(t, []Side{SideBuy, SideSell}, e.Type)
	assert.Equal(t, fixed, e.Time)

	_, err := solana.PublicKeyFromBase58(e.Wallet)
	assert.NoError(t, err)

	require.Equal(t, 1, buf.Len())
	assert.Equal(t, e, buf.Snapshot()[0])
	pub.AssertExpectations(t)
}

func TestGenerator_ZeroProbabilityEmitsNothing(t *testing.T) {
	pub := &mockPublisher{}
	buf := NewBuffer(DefaultCapacity)
	g := NewGenerator(Config{Probability: 0, MinAmount: 10, MaxAmount: 200}, buf, pub, trade.NewRandomSource(3), zaptest.NewLogger(t))

	for i := 0; i < 20; i++ {
		_, ok := g.Tick(context.Background())
		assert.False(t, ok)
	}

	assert.Zero(t, buf.Len())
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestGenerator_CancelledContext(t *testing.T) {
	pub := &mockPublisher{}
	g := NewGenerator(Config{Probability: 1, MinAmount: 1, MaxAmount: 2}, NewBuffer(1), pub, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := g.Tick(ctx)
	assert.False(t, ok)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestGenerator_PublishFailureStillStores(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(events.ErrClosed)

	buf := NewBuffer(2)
	g := NewGenerator(Config{Probability: 1, MinAmount: 1, MaxAmount: 2}, buf, pub, nil, zaptest.NewLogger(t))

	_, ok := g.Tick(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 1, buf.Len())
}

func TestEvent_MarshalJSON(t *testing.T) {
	e := Event{
		Time:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Wallet: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Amount: 123.45,
		Type:   SideSell,
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"time": "2024-01-02 03:04:05",
		"wallet": "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		"amount": 123.45,
		"type": "sell"
	}`, string(data))
}
