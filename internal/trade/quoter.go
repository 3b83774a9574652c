// internal/trade/quoter.go
package trade

import (
	"context"
)

// Quoter supplies the entry price for a token.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// SimulatedQuoter returns a base price with a uniform +-jitter percent
// wobble. There is no market data behind it.
type SimulatedQuoter struct {
	base   float64
	jitter float64
	rng    RandomSource
}

func NewSimulatedQuoter(base, jitterPercent float64, rng RandomSource) *SimulatedQuoter {
	if rng == nil {
		rng = NewRandomSource(uint64(base*1e6) + 1)
	}
	return &SimulatedQuoter{base: base, jitter: jitterPercent, rng: rng}
}

func (q *SimulatedQuoter) Quote(ctx context.Context, _ string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	offset := (2*q.rng.Float64() - 1) * q.jitter / 100
	return q.base * (1 + offset), nil
}
