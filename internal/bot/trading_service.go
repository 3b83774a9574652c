// internal/bot/trading_service.go
package bot

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/domain"
	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/settings"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

// Publisher is the slice of the broadcaster services publish through.
type Publisher interface {
	Publish(topic events.Topic, payload any) error
}

// TradeRecorder receives trade metrics.
type TradeRecorder interface {
	RecordTradePlaced(source string)
	RecordTradeRejected(reason string)
	RecordTakeProfit()
	SetOpenOrders(n int)
}

type nopTradeRecorder struct{}

func (nopTradeRecorder) RecordTradePlaced(string)   {}
func (nopTradeRecorder) RecordTradeRejected(string) {}
func (nopTradeRecorder) RecordTakeProfit()          {}
func (nopTradeRecorder) SetOpenOrders(int)          {}

// TradingServiceConfig configuration for TradingService
type TradingServiceConfig struct {
	Logger         *zap.Logger
	Settings       *settings.Store
	Simulator      *trade.Simulator
	Publisher      Publisher
	Metrics        TradeRecorder
	Defaults       trade.Parameters
	OpenOrderLimit int
}

// TradingService turns trade requests into simulated orders. Parameters
// are snapshotted from the settings store at placement, so a settings
// change never alters an order already placed.
type TradingService struct {
	logger    *zap.Logger
	settings  *settings.Store
	sim       *trade.Simulator
	publisher Publisher
	metrics   TradeRecorder
	defaults  trade.Parameters

	mu        sync.Mutex
	open      map[string]openOrder
	openOrder []string
	limit     int
}

type openOrder struct {
	order        trade.Order
	tokenAddress string
	source       domain.TradeSource
}

// NewTradingService creates a new trading service
func NewTradingService(cfg TradingServiceConfig) *TradingService {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopTradeRecorder{}
	}
	limit := cfg.OpenOrderLimit
	if limit <= 0 {
		limit = 100
	}
	return &TradingService{
		logger:    cfg.Logger.Named("trading_service"),
		settings:  cfg.Settings,
		sim:       cfg.Simulator,
		publisher: cfg.Publisher,
		metrics:   metrics,
		defaults:  cfg.Defaults,
		open:      make(map[string]openOrder),
		limit:     limit,
	}
}

// Parameters returns the parameters a trade placed now would use.
func (s *TradingService) Parameters() trade.Parameters {
	current := s.settings.Get()
	params := s.defaults
	params.TradeAmount = current.TradeAmount
	params.StopLossPercent = current.StopLoss
	params.RiskRewardRatio = current.RiskReward
	return params
}

// Execute places an order, runs the first monitor pass and publishes
// trade_executed. Orders left below target stay in the open book.
func (s *TradingService) Execute(ctx context.Context, req domain.TradeRequest) (domain.TradeExecutedEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.TradeExecutedEvent{}, err
	}

	symbol := req.TokenSymbol
	if symbol == "" {
		symbol = req.TokenAddress
	}
	if symbol == "" {
		s.metrics.RecordTradeRejected("missing_token")
		return domain.TradeExecutedEvent{}, domain.ErrMissingToken
	}

	order, err := s.sim.Place(symbol, req.EntryPrice, s.Parameters())
	if err != nil {
		s.metrics.RecordTradeRejected(rejectionReason(err))
		s.logger.Warn("Trade rejected",
			zap.String("token", symbol),
			zap.Float64("entry_price", req.EntryPrice),
			zap.String("source", string(req.Source)),
			zap.Error(err))
		return domain.TradeExecutedEvent{}, err
	}
	s.metrics.RecordTradePlaced(string(req.Source))

	current := order.TargetPrice
	if req.CurrentPrice != nil {
		current = *req.CurrentPrice
	}
	result := s.sim.Monitor(order, current)

	if result.TakeProfitExecuted {
		s.metrics.RecordTakeProfit()
	} else {
		s.remember(openOrder{order: order, tokenAddress: req.TokenAddress, source: req.Source})
	}

	evt := domain.TradeExecutedEvent{
		Source:       req.Source,
		TokenAddress: req.TokenAddress,
		Order:        order,
		Execution:    order.Execution,
		Monitor:      result,
	}

	s.logger.Info("Trade executed",
		zap.String("order_id", order.ID),
		zap.String("token", symbol),
		zap.String("source", string(req.Source)),
		zap.Float64("entry_price", order.EntryPrice),
		zap.Float64("effective_price", order.Execution.EffectivePrice),
		zap.Float64("slippage", order.Execution.AppliedSlippage),
		zap.Float64("tokens", order.Execution.TokensAcquired),
		zap.String("state", string(result.State)))

	s.publish(evt)
	return evt, nil
}

// Tick re-monitors an open order at price. Reaching the target closes the
// order and publishes trade_executed; otherwise nothing changes.
func (s *TradingService) Tick(ctx context.Context, orderID string, price float64) (domain.TradeExecutedEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.TradeExecutedEvent{}, err
	}

	s.mu.Lock()
	entry, ok := s.open[orderID]
	s.mu.Unlock()
	if !ok {
		return domain.TradeExecutedEvent{}, domain.ErrOrderNotFound
	}

	result := s.sim.Monitor(entry.order, price)
	evt := domain.TradeExecutedEvent{
		Source:       entry.source,
		TokenAddress: entry.tokenAddress,
		Order:        entry.order,
		Execution:    entry.order.Execution,
		Monitor:      result,
	}
	if !result.TakeProfitExecuted {
		return evt, nil
	}

	if !s.forget(orderID) {
		// a concurrent tick already closed it
		return domain.TradeExecutedEvent{}, domain.ErrOrderNotFound
	}
	s.metrics.RecordTakeProfit()
	s.logger.Info("Take-profit reached",
		zap.String("order_id", orderID),
		zap.Float64("price", price),
		zap.Float64("tokens_sold", result.TokensSold),
		zap.Float64("moonbag", result.Moonbag))
	s.publish(evt)
	return evt, nil
}

// OpenOrders lists still-active orders, oldest first.
func (s *TradingService) OpenOrders() []trade.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]trade.Order, 0, len(s.openOrder))
	for _, id := range s.openOrder {
		o := s.open[id].order
		o.State = trade.StateStillActive
		out = append(out, o)
	}
	return out
}

func (s *TradingService) remember(o openOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.openOrder) >= s.limit {
		oldest := s.openOrder[0]
		s.openOrder = s.openOrder[1:]
		delete(s.open, oldest)
		s.logger.Debug("Open order book full, evicting oldest", zap.String("order_id", oldest))
	}
	s.open[o.order.ID] = o
	s.openOrder = append(s.openOrder, o.order.ID)
	s.metrics.SetOpenOrders(len(s.openOrder))
}

func (s *TradingService) forget(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.open[id]; !ok {
		return false
	}
	delete(s.open, id)
	for i, v := range s.openOrder {
		if v == id {
			s.openOrder = append(s.openOrder[:i], s.openOrder[i+1:]...)
			break
		}
	}
	s.metrics.SetOpenOrders(len(s.openOrder))
	return true
}

func (s *TradingService) publish(evt domain.TradeExecutedEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(events.TopicTradeExecuted, evt); err != nil {
		s.logger.Debug("Trade event not broadcast", zap.Error(err))
	}
}

func rejectionReason(err error) string {
	var priceErr *trade.InvalidPriceError
	var paramsErr *trade.InvalidParametersError
	switch {
	case errors.As(err, &priceErr):
		return "invalid_price"
	case errors.As(err, &paramsErr):
		return "invalid_parameters"
	default:
		return "other"
	}
}
