// internal/bot/pipeline.go
package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/domain"
	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/feed"
	"github.com/rovshanmuradov/memesniper/internal/signal"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

// SignalRecorder receives signal metrics.
type SignalRecorder interface {
	RecordSignal(actionable bool)
}

// Pipeline routes extracted signals: every one is broadcast, actionable
// ones are traded at a quoted entry price.
type Pipeline struct {
	trading   *TradingService
	quoter    trade.Quoter
	publisher Publisher
	metrics   SignalRecorder
	logger    *zap.Logger
}

func NewPipeline(trading *TradingService, quoter trade.Quoter, publisher Publisher, metrics SignalRecorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		trading:   trading,
		quoter:    quoter,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("pipeline"),
	}
}

// HandleSignal implements signal.Sink. The signal event is published before
// any trade it triggers.
func (p *Pipeline) HandleSignal(ctx context.Context, post feed.Post, sig signal.Signal) {
	if p.metrics != nil {
		p.metrics.RecordSignal(sig.ShouldTrade)
	}
	if err := p.publisher.Publish(events.TopicTradeSignal, domain.NewSignalEvent(post, sig)); err != nil {
		p.logger.Debug("Signal not broadcast", zap.Error(err))
	}

	if !sig.ShouldTrade {
		return
	}

	token := sig.Token()
	price, err := p.quoter.Quote(ctx, token)
	if err != nil {
		p.logger.Warn("No entry price, skipping signal", zap.String("token", token), zap.Error(err))
		return
	}

	req := domain.TradeRequest{EntryPrice: price, Source: domain.SourceSignal}
	if sig.TokenSymbol != nil {
		req.TokenSymbol = *sig.TokenSymbol
	}
	if sig.TokenAddress != nil {
		req.TokenAddress = *sig.TokenAddress
	}

	if _, err := p.trading.Execute(ctx, req); err != nil {
		p.logger.Warn("Signal trade failed",
			zap.String("post_id", post.ID),
			zap.String("token", token),
			zap.Error(err))
	}
}
