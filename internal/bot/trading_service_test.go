// internal/bot/trading_service_test.go
package bot

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/memesniper/internal/domain"
	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/settings"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

func ptr(v float64) *float64 { return &v }

func TestTradingService_ExecuteAtTarget(t *testing.T) {
	pub := &recordingPublisher{}
	rec := newRecordingMetrics()
	svc, _ := newTestTradingService(t, pub, rec, 0)

	evt, err := svc.Execute(context.Background(), domain.TradeRequest{
		TokenSymbol: "BONK",
		EntryPrice:  1,
		Source:      domain.SourceSignal,
	})
	require.NoError(t, err)

	assert.Equal(t, "BONK", evt.Order.TokenSymbol)
	assert.InDelta(t, 15.0, evt.Execution.AppliedSlippage, 1e-9)
	assert.InDelta(t, 1.15, evt.Execution.EffectivePrice, 1e-9)
	assert.InDelta(t, 1/1.15, evt.Execution.TokensAcquired, 1e-9)
	assert.InDelta(t, 10.0, evt.Order.TargetPrice, 1e-9)

	// no current price: the first pass runs at the target
	assert.True(t, evt.Monitor.TakeProfitExecuted)
	assert.InDelta(t, evt.Execution.TokensAcquired*0.85, evt.Monitor.TokensSold, 1e-9)
	assert.InDelta(t, evt.Execution.TokensAcquired*0.15, evt.Monitor.Moonbag, 1e-9)
	assert.Empty(t, svc.OpenOrders())

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, events.TopicTradeExecuted, msgs[0].topic)
	assert.Equal(t, evt, msgs[0].payload)

	assert.Equal(t, 1, rec.placed["signal"])
	assert.Equal(t, 1, rec.takeProfit)
}

func TestTradingService_SettingsSnapshot(t *testing.T) {
	svc, store := newTestTradingService(t, &recordingPublisher{}, nil, 0)

	_, err := store.Update(settings.Patch{TradeAmount: ptr(2.3), StopLoss: ptr(9)})
	require.NoError(t, err)

	evt, err := svc.Execute(context.Background(), domain.TradeRequest{TokenSymbol: "WIF", EntryPrice: 2, CurrentPrice: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2.3, evt.Order.Params.TradeAmount)
	assert.Equal(t, 9.0, evt.Order.Params.StopLossPercent)
	assert.Equal(t, 3.0, evt.Order.Params.RiskRewardRatio)

	// a later change leaves the placed order alone
	_, err = store.Update(settings.Patch{TradeAmount: ptr(7)})
	require.NoError(t, err)
	open := svc.OpenOrders()
	require.Len(t, open, 1)
	assert.Equal(t, 2.3, open[0].Params.TradeAmount)
}

func TestTradingService_StillActiveThenTick(t *testing.T) {
	pub := &recordingPublisher{}
	rec := newRecordingMetrics()
	svc, _ := newTestTradingService(t, pub, rec, 0)
	ctx := context.Background()

	evt, err := svc.Execute(ctx, domain.TradeRequest{TokenSymbol: "SOL", EntryPrice: 1, CurrentPrice: ptr(5)})
	require.NoError(t, err)
	assert.False(t, evt.Monitor.TakeProfitExecuted)
	assert.Equal(t, trade.StateStillActive, evt.Monitor.State)
	assert.Zero(t, evt.Monitor.TokensSold)
	assert.Equal(t, 1, rec.open)

	id := evt.Order.ID
	below, err := svc.Tick(ctx, id, 9.99)
	require.NoError(t, err)
	assert.False(t, below.Monitor.TakeProfitExecuted)
	assert.Len(t, svc.OpenOrders(), 1)

	hit, err := svc.Tick(ctx, id, 10)
	require.NoError(t, err)
	assert.True(t, hit.Monitor.TakeProfitExecuted)
	assert.Empty(t, svc.OpenOrders())
	assert.Equal(t, 0, rec.open)

	_, err = svc.Tick(ctx, id, 20)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// placement plus the take-profit tick; the below-target tick is silent
	assert.Len(t, pub.all(), 2)
}

func TestTradingService_NaNPriceStaysActive(t *testing.T) {
	svc, _ := newTestTradingService(t, &recordingPublisher{}, nil, 0)

	evt, err := svc.Execute(context.Background(), domain.TradeRequest{TokenSymbol: "X", EntryPrice: 1, CurrentPrice: ptr(math.NaN())})
	require.NoError(t, err)
	assert.False(t, evt.Monitor.TakeProfitExecuted)
}

func TestTradingService_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.TradeRequest
		reason string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "zero price",
			req:    domain.TradeRequest{TokenSymbol: "A", EntryPrice: 0},
			reason: "invalid_price",
			check: func(t *testing.T, err error) {
				var pe *trade.InvalidPriceError
				assert.ErrorAs(t, err, &pe)
			},
		},
		{
			name:   "infinite price",
			req:    domain.TradeRequest{TokenSymbol: "A", EntryPrice: math.Inf(1)},
			reason: "invalid_price",
			check: func(t *testing.T, err error) {
				var pe *trade.InvalidPriceError
				assert.ErrorAs(t, err, &pe)
			},
		},
		{
			name:   "no token",
			req:    domain.TradeRequest{EntryPrice: 1},
			reason: "missing_token",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrMissingToken)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			rec := newRecordingMetrics()
			svc, _ := newTestTradingService(t, pub, rec, 0)

			_, err := svc.Execute(context.Background(), tt.req)
			tt.check(t, err)
			assert.Empty(t, pub.all())
			assert.Empty(t, svc.OpenOrders())
			assert.Equal(t, 1, rec.rejected[tt.reason])
		})
	}
}

func TestTradingService_AddressFallback(t *testing.T) {
	svc, _ := newTestTradingService(t, &recordingPublisher{}, nil, 0)
	addr := "So11111111111111111111111111111111111111112"

	evt, err := svc.Execute(context.Background(), domain.TradeRequest{TokenAddress: addr, EntryPrice: 1})
	require.NoError(t, err)
	assert.Equal(t, addr, evt.Order.TokenSymbol)
	assert.Equal(t, addr, evt.TokenAddress)
}

func TestTradingService_OpenBookEvictsOldest(t *testing.T) {
	svc, _ := newTestTradingService(t, &recordingPublisher{}, nil, 2)
	ctx := context.Background()

	var ids []string
	for _, sym := range []string{"A", "B", "C"} {
		evt, err := svc.Execute(ctx, domain.TradeRequest{TokenSymbol: sym, EntryPrice: 1, CurrentPrice: ptr(1)})
		require.NoError(t, err)
		ids = append(ids, evt.Order.ID)
	}

	open := svc.OpenOrders()
	require.Len(t, open, 2)
	assert.Equal(t, ids[1], open[0].ID)
	assert.Equal(t, ids[2], open[1].ID)

	_, err := svc.Tick(ctx, ids[0], 100)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestTradingService_CancelledContext(t *testing.T) {
	svc, _ := newTestTradingService(t, &recordingPublisher{}, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Execute(ctx, domain.TradeRequest{TokenSymbol: "A", EntryPrice: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
