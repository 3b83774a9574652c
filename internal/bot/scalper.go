// internal/bot/scalper.go
package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/domain"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

// Scalper fires small simulated trades at a jittered price with a fixed
// trigger probability per tick.
type Scalper struct {
	trading     *TradingService
	symbol      string
	basePrice   float64
	probability float64
	rng         trade.RandomSource
	logger      *zap.Logger
}

func NewScalper(trading *TradingService, symbol string, basePrice, probability float64, rng trade.RandomSource, logger *zap.Logger) *Scalper {
	if rng == nil {
		rng = trade.NewRandomSource(uint64(basePrice*1e9) + 7)
	}
	return &Scalper{
		trading:     trading,
		symbol:      symbol,
		basePrice:   basePrice,
		probability: probability,
		rng:         rng,
		logger:      logger.Named("scalper"),
	}
}

// Tick prices the instrument within +-5% of the base and trades when the
// trigger draw hits. It reports whether a trade was attempted.
func (s *Scalper) Tick(ctx context.Context) bool {
	price := s.basePrice * (0.95 + 0.1*s.rng.Float64())
	if s.rng.Float64() >= s.probability {
		return false
	}

	s.logger.Debug("Scalping opportunity", zap.String("symbol", s.symbol), zap.Float64("price", price))
	if _, err := s.trading.Execute(ctx, domain.TradeRequest{
		TokenSymbol: s.symbol,
		EntryPrice:  price,
		Source:      domain.SourceScalper,
	}); err != nil {
		s.logger.Warn("Scalp trade failed", zap.Error(err))
	}
	return true
}
