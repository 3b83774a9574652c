// internal/trade/simulator.go
package trade

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// lockedRand serialises access to a non thread-safe generator.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// NewRandomSource returns a goroutine-safe source seeded from seed.
func NewRandomSource(seed uint64) RandomSource {
	return &lockedRand{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Simulator places and evaluates simulated orders. The slippage draw is its
// only source of non-determinism; the rest is plain arithmetic, so one
// Simulator can be shared across goroutines.
type Simulator struct {
	rng RandomSource
	now func() time.Time
}

// NewSimulator returns a Simulator drawing slippage from rng. A nil rng
// uses a randomly seeded source.
func NewSimulator(rng RandomSource) *Simulator {
	if rng == nil {
		rng = NewRandomSource(rand.Uint64())
	}
	return &Simulator{rng: rng, now: time.Now}
}

// Place opens an order for symbol at entryPrice.
//
// The applied slippage is drawn uniformly from [SlippageMin, SlippageMax];
// the effective price is entry*(1+slippage/100) and the amount bought is
// TradeAmount divided by that price. The take-profit target is
// entry*TakeProfitMultiplier.
func (s *Simulator) Place(symbol string, entryPrice float64, params Parameters) (Order, error) {
	if !isPositiveFinite(entryPrice) {
		return Order{}, &InvalidPriceError{Price: entryPrice}
	}
	if err := params.Validate(); err != nil {
		return Order{}, err
	}

	slippage := params.SlippageMin + s.rng.Float64()*(params.SlippageMax-params.SlippageMin)
	effective := entryPrice * (1 + slippage/100)

	return Order{
		ID:          uuid.New().String(),
		TokenSymbol: symbol,
		EntryPrice:  entryPrice,
		TargetPrice: entryPrice * params.TakeProfitMultiplier,
		Params:      params,
		Execution: ExecutionResult{
			EffectivePrice:  effective,
			AppliedSlippage: slippage,
			TokensAcquired:  params.TradeAmount / effective,
		},
		State:    StatePlaced,
		PlacedAt: s.now(),
	}, nil
}

// Monitor checks order against currentPrice. Reaching the target sells all
// but the moonbag share of the acquired tokens; anything below leaves the
// position active. The order itself is not modified.
func (s *Simulator) Monitor(order Order, currentPrice float64) MonitorResult {
	result := MonitorResult{
		OrderID:      order.ID,
		CurrentPrice: currentPrice,
		TargetPrice:  order.TargetPrice,
		State:        StateStillActive,
	}

	if currentPrice < order.TargetPrice || math.IsNaN(currentPrice) {
		return result
	}

	acquired := order.Execution.TokensAcquired
	sold := acquired * (1 - order.Params.MoonbagPercentage/100)

	result.TakeProfitExecuted = true
	result.TokensSold = sold
	result.Moonbag = acquired - sold
	result.State = StateTakeProfitExecuted
	return result
}

// Validate checks the parameters a placement depends on.
func (p Parameters) Validate() error {
	switch {
	case !isPositiveFinite(p.TradeAmount):
		return &InvalidParametersError{Field: "trade_amount", Reason: "must be a positive finite number"}
	case !isFinite(p.SlippageMin) || !isFinite(p.SlippageMax):
		return &InvalidParametersError{Field: "slippage", Reason: "must be finite"}
	case p.SlippageMin > p.SlippageMax:
		return &InvalidParametersError{Field: "slippage_min", Reason: "exceeds slippage_max"}
	case p.SlippageMin <= -100:
		return &InvalidParametersError{Field: "slippage_min", Reason: "must be above -100"}
	case !isPositiveFinite(p.TakeProfitMultiplier):
		return &InvalidParametersError{Field: "take_profit_multiplier", Reason: "must be a positive finite number"}
	case p.MoonbagPercentage < 0 || p.MoonbagPercentage > 100 || math.IsNaN(p.MoonbagPercentage):
		return &InvalidParametersError{Field: "moonbag_percentage", Reason: "must be within [0,100]"}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isPositiveFinite(v float64) bool {
	return isFinite(v) && v > 0
}
