// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/domain"
	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/feed"
	"github.com/rovshanmuradov/memesniper/internal/market"
	"github.com/rovshanmuradov/memesniper/internal/settings"
	"github.com/rovshanmuradov/memesniper/internal/trade"
	"github.com/rovshanmuradov/memesniper/internal/whale"
)

// TradingService places and re-monitors simulated orders.
type TradingService interface {
	Execute(ctx context.Context, req domain.TradeRequest) (domain.TradeExecutedEvent, error)
	Tick(ctx context.Context, orderID string, price float64) (domain.TradeExecutedEvent, error)
	OpenOrders() []trade.Order
}

// TopTraders supplies the top-traders listing.
type TopTraders interface {
	TopTraders(ctx context.Context) []market.Trader
}

// Subscriber hands out broadcast subscriptions to websocket clients.
type Subscriber interface {
	Subscribe(name string, bufferSize int, topics ...events.Topic) (*events.Subscription, error)
}

// Metrics exposes the scrape handler and tracks websocket clients.
type Metrics interface {
	Handler() http.Handler
	WebsocketConnected()
	WebsocketDisconnected()
}

// Deps are the components the handlers operate on.
type Deps struct {
	Settings   *settings.Store
	Accounts   *feed.Accounts
	Whales     *whale.Buffer
	Trading    TradingService
	TopTraders TopTraders
	Events     Subscriber
	Metrics    Metrics
}

type Config struct {
	Addr              string
	RequestsPerSecond float64
	Burst             int
	// SubscriberBuffer bounds each websocket client's outbound queue.
	SubscriberBuffer int
	ShutdownTimeout  time.Duration
}

// Server is the operator HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("api"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the gin engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(recovery(s.logger), requestLogger(s.logger), cors())

	r.GET("/health", s.health)
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	r.GET("/ws", s.serveWebsocket)

	api := r.Group("/api")
	if s.cfg.RequestsPerSecond > 0 {
		api.Use(rateLimiter(s.cfg.RequestsPerSecond, s.cfg.Burst))
	}
	api.GET("/whale-activity", s.whaleActivity)
	api.GET("/settings", s.getSettings)
	api.POST("/save-settings", s.saveSettings)
	api.GET("/top-traders", s.topTraders)

	tw := api.Group("/twitter")
	tw.GET("/tracked-accounts", s.trackedAccounts)
	tw.POST("/track", s.track)
	tw.POST("/untrack", s.untrack)

	api.POST("/trade", s.placeTrade)
	api.GET("/trades/open", s.openTrades)
	api.POST("/trades/:id/tick", s.tickTrade)

	return r
}

// Run serves until ctx is cancelled, then shuts the listener down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
