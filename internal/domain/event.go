package domain

import (
	"errors"
	"time"

	"github.com/rovshanmuradov/memesniper/internal/feed"
	"github.com/rovshanmuradov/memesniper/internal/signal"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

// Broadcast payloads. Each topic carries exactly one of these types.

// SignalEvent is published on new_trade_signal for every analysed post.
type SignalEvent struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Author    string        `json:"author"`
	CreatedAt time.Time     `json:"created_at"`
	Signals   signal.Signal `json:"signals"`
}

// NewSignalEvent pairs a post with its extracted signal.
func NewSignalEvent(post feed.Post, sig signal.Signal) SignalEvent {
	return SignalEvent{
		ID:        post.ID,
		Text:      post.Text,
		Author:    post.Author,
		CreatedAt: post.Timestamp,
		Signals:   sig,
	}
}

// TradeSource tells where an order request came from.
type TradeSource string

const (
	SourceSignal  TradeSource = "signal"
	SourceManual  TradeSource = "manual"
	SourceScalper TradeSource = "scalper"
)

// TradeRequest asks for one simulated order. CurrentPrice, when set, is
// the price of the first monitor pass; otherwise the target price is used.
type TradeRequest struct {
	TokenSymbol  string
	TokenAddress string
	EntryPrice   float64
	CurrentPrice *float64
	Source       TradeSource
}

// ErrOrderNotFound is returned when re-monitoring an unknown or closed order.
var ErrOrderNotFound = errors.New("order not found")

// ErrMissingToken is returned for a trade request naming no token.
var ErrMissingToken = errors.New("token symbol or address is required")

// TradeExecutedEvent is published on trade_executed after placement and the
// first monitor pass, and again whenever a re-monitor changes the outcome.
type TradeExecutedEvent struct {
	Source       TradeSource           `json:"source"`
	TokenAddress string                `json:"token_address,omitempty"`
	Order        trade.Order           `json:"order"`
	Execution    trade.ExecutionResult `json:"execution"`
	Monitor      trade.MonitorResult   `json:"monitor"`
}
