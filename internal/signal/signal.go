// internal/signal/signal.go
package signal

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/feed"
)

var (
	// base58 alphabet: no 0, O, I or l
	addressPattern = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)
	cashtagPattern = regexp.MustCompile(`\$([A-Za-z0-9]+)`)
)

// Signal is what a post says about a tradable token.
type Signal struct {
	ShouldTrade  bool    `json:"should_trade"`
	TokenAddress *string `json:"token_address"`
	TokenSymbol  *string `json:"token_symbol"`
	Sentiment    float64 `json:"sentiment"`
}

// Token returns the symbol when present, otherwise the address.
func (s Signal) Token() string {
	if s.TokenSymbol != nil {
		return *s.TokenSymbol
	}
	if s.TokenAddress != nil {
		return *s.TokenAddress
	}
	return ""
}

// Extract derives a Signal from post text. It is pure: the same text always
// yields the same Signal.
func Extract(text string) Signal {
	var sig Signal

	if addr := addressPattern.FindString(text); addr != "" {
		sig.TokenAddress = &addr
	}
	if m := cashtagPattern.FindStringSubmatch(text); m != nil {
		symbol := m[1]
		sig.TokenSymbol = &symbol
	}

	sig.ShouldTrade = sig.TokenAddress != nil || sig.TokenSymbol != nil
	sig.Sentiment = Sentiment(text)
	return sig
}

// Sink consumes extracted signals together with the post they came from.
type Sink interface {
	HandleSignal(ctx context.Context, post feed.Post, sig Signal)
}

// Extractor adapts a Sink into a feed.PostHandler.
type Extractor struct {
	sink   Sink
	logger *zap.Logger
}

func NewExtractor(sink Sink, logger *zap.Logger) *Extractor {
	return &Extractor{
		sink:   sink,
		logger: logger.Named("signal"),
	}
}

// OnPost implements feed.PostHandler.
func (e *Extractor) OnPost(ctx context.Context, post feed.Post) {
	sig := Extract(post.Text)

	e.logger.Debug("Post analysed",
		zap.String("post_id", post.ID),
		zap.String("author", post.Author),
		zap.Bool("should_trade", sig.ShouldTrade),
		zap.String("token", sig.Token()),
		zap.Float64("sentiment", sig.Sentiment))

	e.sink.HandleSignal(ctx, post, sig)
}
