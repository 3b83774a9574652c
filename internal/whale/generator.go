// internal/whale/generator.go
package whale

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/logger"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

// TimeLayout is the wire format of Event.Time.
const TimeLayout = "2006-01-02 15:04:05"

// Side of a whale transaction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Event is one synthetic large-wallet transaction. It is generated, not
// observed on chain.
type Event struct {
	Time   time.Time `json:"-"`
	Wallet string    `json:"wallet"`
	Amount float64   `json:"amount"`
	Type   Side      `json:"type"`
}

type wireEvent struct {
	Time   string  `json:"time"`
	Wallet string  `json:"wallet"`
	Amount float64 `json:"amount"`
	Type   Side    `json:"type"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Time:   e.Time.Format(TimeLayout),
		Wallet: e.Wallet,
		Amount: e.Amount,
		Type:   e.Type,
	})
}

// Publisher is the slice of the broadcaster the generator needs.
type Publisher interface {
	Publish(topic events.Topic, payload any) error
}

// Config shapes the synthetic stream.
type Config struct {
	Probability float64
	MinAmount   float64
	MaxAmount   float64
}

// Generator produces synthetic whale events into a Buffer and publishes
// them as new_whale_activity.
type Generator struct {
	cfg       Config
	buffer    *Buffer
	publisher Publisher
	rng       trade.RandomSource
	wallet    func() string
	now       func() time.Time
	logger    *zap.Logger
}

func NewGenerator(cfg Config, buffer *Buffer, publisher Publisher, rng trade.RandomSource, logger *zap.Logger) *Generator {
	if rng == nil {
		rng = trade.NewRandomSource(uint64(time.Now().UnixNano()))
	}
	return &Generator{
		cfg:       cfg,
		buffer:    buffer,
		publisher: publisher,
		rng:       rng,
		wallet:    randomWallet,
		now:       time.Now,
		logger:    logger.Named("whale"),
	}
}

// randomWallet returns the base58 public key of a throwaway keypair.
func randomWallet() string {
	return solana.NewWallet().PublicKey().String()
}

// Tick runs one generation step. With the configured probability it
// synthesizes an event, stores it and publishes it.
func (g *Generator) Tick(ctx context.Context) (Event, bool) {
	if ctx.Err() != nil {
		return Event{}, false
	}
	if g.rng.Float64() >= g.cfg.Probability {
		return Event{}, false
	}

	amount := g.cfg.MinAmount + g.rng.Float64()*(g.cfg.MaxAmount-g.cfg.MinAmount)
	side := SideBuy
	if g.rng.Float64() < 0.5 {
		side = SideSell
	}

	e := Event{
		Time:   g.now(),
		Wallet: g.wallet(),
		Amount: math.Round(amount*100) / 100,
		Type:   side,
	}

	g.buffer.Append(e)
	if err := g.publisher.Publish(events.TopicWhaleActivity, e); err != nil {
		g.logger.Debug("Whale event not broadcast", zap.Error(err))
	}

	g.logger.Info("Whale activity",
		zap.String("wallet", logger.ShortenAddress(e.Wallet)),
		zap.String("type", string(e.Type)),
		zap.Float64("amount", e.Amount))
	return e, true
}
