// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/memesniper/internal/api"
	"github.com/rovshanmuradov/memesniper/internal/config"
	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/feed"
	"github.com/rovshanmuradov/memesniper/internal/market"
	"github.com/rovshanmuradov/memesniper/internal/metrics"
	"github.com/rovshanmuradov/memesniper/internal/relay"
	"github.com/rovshanmuradov/memesniper/internal/settings"
	"github.com/rovshanmuradov/memesniper/internal/signal"
	"github.com/rovshanmuradov/memesniper/internal/trade"
	"github.com/rovshanmuradov/memesniper/internal/whale"
)

// Runner wires every component from configuration and supervises them
// until the context is cancelled.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	// seed for the shared random source; zero means time based
	seed uint64
}

func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled or a component fails fatally. Producers
// stop first, then the broadcaster drains, then the relay closes.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.cfg
	collector := metrics.NewCollector()
	shutdown := NewShutdownHandler(r.logger, cfg.ShutdownTimeout)

	store, err := settings.NewStore(settings.Settings{
		TradeAmount: cfg.Trade.TradeAmount,
		StopLoss:    cfg.Trade.StopLoss,
		RiskReward:  cfg.Trade.RiskReward,
	}, r.logger)
	if err != nil {
		return fmt.Errorf("initial settings: %w", err)
	}

	broadcaster := events.NewBroadcaster(r.logger, cfg.Broadcast.SubscriberBuffer, events.WithObserver(collector))
	if cfg.Relay.AMQPURL != "" {
		rl, err := relay.Dial(cfg.Relay.AMQPURL, cfg.Relay.Exchange, r.logger)
		if err != nil {
			return err
		}
		if _, err := broadcaster.SubscribeFunc("amqp-relay", 0, rl); err != nil {
			_ = rl.Close()
			return fmt.Errorf("attach relay: %w", err)
		}
		shutdown.Add("relay", rl)
	}
	shutdown.AddContext("broadcaster", broadcaster.Shutdown)

	seed := r.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := trade.NewRandomSource(seed)

	trading := NewTradingService(TradingServiceConfig{
		Logger:         r.logger,
		Settings:       store,
		Simulator:      trade.NewSimulator(rng),
		Publisher:      broadcaster,
		Metrics:        collector,
		Defaults:       tradeDefaults(cfg.Trade),
		OpenOrderLimit: cfg.Trade.OpenOrderLimit,
	})
	store.OnChange(func(settings.Settings) {
		p := trading.Parameters()
		r.logger.Info("Trade parameters changed",
			zap.Float64("trade_amount", p.TradeAmount),
			zap.Float64("stop_loss_percent", p.StopLossPercent),
			zap.Float64("risk_reward_ratio", p.RiskRewardRatio))
	})
	quoter := trade.NewSimulatedQuoter(cfg.Trade.BasePrice, cfg.Trade.PriceJitter, rng)
	extractor := signal.NewExtractor(NewPipeline(trading, quoter, broadcaster, collector, r.logger), r.logger)

	var resolver feed.Resolver = feed.HandleResolver{}
	if cfg.Twitter.BearerToken != "" {
		resolver = feed.NewTwitterClient(cfg.Twitter.BaseURL, cfg.Twitter.BearerToken, cfg.Twitter.Timeout, r.logger)
	}
	accounts := feed.NewAccounts(cfg.Feed.TrackedAccounts, resolver, r.logger)
	source := r.newSource(accounts)

	whales := whale.NewBuffer(cfg.Whale.Capacity)
	generator := whale.NewGenerator(whale.Config{
		Probability: cfg.Whale.Probability,
		MinAmount:   cfg.Whale.MinAmount,
		MaxAmount:   cfg.Whale.MaxAmount,
	}, whales, broadcaster, rng, r.logger)

	scheduler := NewScheduler(r.logger)
	if err := scheduler.Every("whale", cfg.Whale.Interval, func(ctx context.Context) {
		if e, ok := generator.Tick(ctx); ok {
			collector.RecordWhaleEvent(string(e.Type))
		}
	}); err != nil {
		return err
	}
	if cfg.Scalper.Enabled {
		scalper := NewScalper(trading, cfg.Scalper.Symbol, cfg.Scalper.BasePrice, cfg.Scalper.Probability, rng, r.logger)
		if err := scheduler.Every("scalper", cfg.Scalper.Interval, func(ctx context.Context) {
			scalper.Tick(ctx)
		}); err != nil {
			return err
		}
	}
	shutdown.AddContext("scheduler", scheduler.Stop)

	server := api.NewServer(api.Config{
		Addr:              cfg.Server.Addr,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
		SubscriberBuffer:  cfg.Broadcast.SubscriberBuffer,
		ShutdownTimeout:   cfg.ShutdownTimeout,
	}, api.Deps{
		Settings:   store,
		Accounts:   accounts,
		Whales:     whales,
		Trading:    trading,
		TopTraders: market.NewTopTradersClient(cfg.Market.TopTradersURL, cfg.Market.Timeout, r.logger),
		Events:     broadcaster,
		Metrics:    collector,
	}, r.logger)

	r.logger.Info("Starting memesniper",
		zap.String("addr", cfg.Server.Addr),
		zap.String("feed", cfg.Feed.Mode),
		zap.Strings("tracked", accounts.List()),
		zap.Bool("scalper", cfg.Scalper.Enabled),
		zap.Bool("relay", cfg.Relay.AMQPURL != ""))

	g, gctx := errgroup.WithContext(ctx)
	scheduler.Start(gctx)

	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		// a dead feed means no posts, never a stopped process
		if err := source.Run(gctx, extractor); err != nil {
			r.logger.Error("Feed source stopped", zap.Error(err))
		}
		return nil
	})

	runErr := g.Wait()
	if runErr != nil {
		r.logger.Error("Component failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, shutdown.Shutdown(shutdownCtx))
}

func (r *Runner) newSource(accounts *feed.Accounts) feed.Source {
	if r.cfg.Feed.Mode == config.FeedModeStream {
		return feed.NewStreamSource(r.cfg.Feed.StreamURL, r.cfg.Twitter.BearerToken, accounts, r.cfg.Feed.MaxRetries, r.logger)
	}
	return feed.NewSimulatedSource(accounts, r.cfg.Feed.Interval, r.logger)
}

func tradeDefaults(t config.TradeConfig) trade.Parameters {
	return trade.Parameters{
		TradeAmount:          t.TradeAmount,
		SlippageMin:          t.SlippageMin,
		SlippageMax:          t.SlippageMax,
		TakeProfitMultiplier: t.TakeProfitMultiplier,
		MoonbagPercentage:    t.MoonbagPercentage,
		PriorityFee:          t.PriorityFee,
		StopLossPercent:      t.StopLoss,
		MaxRiskPercent:       t.MaxRiskPercent,
		RiskRewardRatio:      t.RiskReward,
	}
}
