// internal/trade/types.go
package trade

import (
	"time"
)

// Parameters is the immutable snapshot a trade is placed with.
// StopLossPercent, MaxRiskPercent and RiskRewardRatio are carried for
// reporting only; no exit logic reads them.
type Parameters struct {
	TradeAmount          float64 `json:"trade_amount"`
	SlippageMin          float64 `json:"slippage_min"`
	SlippageMax          float64 `json:"slippage_max"`
	TakeProfitMultiplier float64 `json:"take_profit_multiplier"`
	MoonbagPercentage    float64 `json:"moonbag_percentage"`
	PriorityFee          float64 `json:"priority_fee"`
	StopLossPercent      float64 `json:"stop_loss_percent"`
	MaxRiskPercent       float64 `json:"max_risk_percent"`
	RiskRewardRatio      float64 `json:"risk_reward_ratio"`
}

// DefaultParameters mirrors the stock execution profile: 0.5 SOL, 15-25%
// slippage, 10x take-profit with a 15% moonbag.
func DefaultParameters() Parameters {
	return Parameters{
		TradeAmount:          0.5,
		SlippageMin:          15,
		SlippageMax:          25,
		TakeProfitMultiplier: 10,
		MoonbagPercentage:    15,
		PriorityFee:          0.01,
		StopLossPercent:      5,
		MaxRiskPercent:       2,
		RiskRewardRatio:      3,
	}
}

// State of an order's lifecycle.
type State string

const (
	StatePlaced             State = "placed"
	StateStillActive        State = "still_active"
	StateTakeProfitExecuted State = "take_profit_executed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateTakeProfitExecuted
}

// ExecutionResult is the outcome of placing an order.
type ExecutionResult struct {
	EffectivePrice  float64 `json:"effective_price"`
	AppliedSlippage float64 `json:"applied_slippage"`
	TokensAcquired  float64 `json:"tokens_acquired"`
}

// Order is a placed simulated trade. It is a value: monitoring never
// changes it.
type Order struct {
	ID          string          `json:"id"`
	TokenSymbol string          `json:"token_symbol"`
	EntryPrice  float64         `json:"entry_price"`
	TargetPrice float64         `json:"target_price"`
	Params      Parameters      `json:"trade_params"`
	Execution   ExecutionResult `json:"execution"`
	State       State           `json:"state"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// MonitorResult is the outcome of checking an order against a price.
type MonitorResult struct {
	OrderID            string  `json:"order_id"`
	TakeProfitExecuted bool    `json:"take_profit_executed"`
	TokensSold         float64 `json:"tokens_sold,omitempty"`
	Moonbag            float64 `json:"moonbag,omitempty"`
	CurrentPrice       float64 `json:"current_price"`
	TargetPrice        float64 `json:"target_price"`
	State              State   `json:"state"`
}
